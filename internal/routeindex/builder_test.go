package routeindex

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/commutewatch-data/internal/common/logger"
	"github.com/commutewatch-data/internal/refdata"
	"github.com/commutewatch-data/pkg/transit/models"
)

const builderNetwork = `
updated_at: 2026-02-01T00:00:00Z
stations:
  - id: A
    name: Alpha
    lines: [linex]
  - id: M
    name: Middle
    lines: [linex]
  - id: B
    name: Bravo
    lines: [linex]
  - id: C
    name: Charlie
    lines: [linex]
  - id: Q
    name: Quebec
    lines: [other]
  - id: H1
    name: Hubward Rail
    lines: [other]
    hub_id: HUBX
lines:
  - id: linex
    name: Line X
    mode: rail
    variants:
      - name: full
        direction: outbound
        stations: [A, M, B, C]
`

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	ref, err := refdata.ParseNetwork([]byte(builderNetwork))
	if err != nil {
		t.Fatalf("parsing network: %v", err)
	}
	return &Builder{
		ref:      ref,
		logger:   logger.New(zerolog.ErrorLevel, io.Discard),
		validate: validator.New(),
	}
}

func TestComputeEntriesExpandsIntermediateStations(t *testing.T) {
	b := testBuilder(t)
	routeID := uuid.New()

	segments := []models.Segment{
		models.TransitSegment(0, "A", "linex"),
		models.TransitSegment(1, "B", "linex"),
		models.DestinationSegment(2, "C"),
	}

	entries, processed, failed, err := b.computeEntries(context.Background(), routeID, segments)
	if err != nil {
		t.Fatalf("computeEntries: %v", err)
	}
	if processed != 2 || failed != 0 {
		t.Errorf("expected 2 processed and 0 failed pairs, got %d and %d", processed, failed)
	}

	want := models.PairSet{
		{LineID: "linex", StationID: "A"}: {},
		{LineID: "linex", StationID: "M"}: {},
		{LineID: "linex", StationID: "B"}: {},
		{LineID: "linex", StationID: "C"}: {},
	}
	got := make(models.PairSet)
	for _, e := range entries {
		if e.RouteID != routeID {
			t.Errorf("entry has wrong route id: %s", e.RouteID)
		}
		got.Add(models.Pair{LineID: e.LineID, StationID: e.StationID})
	}
	if len(got) != len(want) {
		t.Fatalf("expected pairs %v, got %v", want, got)
	}
	for pair := range want {
		if !got.Contains(pair) {
			t.Errorf("missing pair %v", pair)
		}
	}
}

func TestComputeEntriesIsIdempotent(t *testing.T) {
	b := testBuilder(t)
	routeID := uuid.New()

	segments := []models.Segment{
		models.TransitSegment(0, "A", "linex"),
		models.DestinationSegment(1, "C"),
	}

	first, _, _, err := b.computeEntries(context.Background(), routeID, segments)
	if err != nil {
		t.Fatalf("computeEntries: %v", err)
	}
	second, _, _, err := b.computeEntries(context.Background(), routeID, segments)
	if err != nil {
		t.Fatalf("computeEntries: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical entry sets, got %d and %d entries", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestComputeEntriesSkipsFailingPair(t *testing.T) {
	b := testBuilder(t)

	// Q is not on any variant of linex: the second pair fails expansion and
	// is skipped, the first still indexes.
	segments := []models.Segment{
		models.TransitSegment(0, "A", "linex"),
		models.TransitSegment(1, "B", "linex"),
		models.DestinationSegment(2, "Q"),
	}

	entries, processed, failed, err := b.computeEntries(context.Background(), uuid.New(), segments)
	if err != nil {
		t.Fatalf("computeEntries: %v", err)
	}
	if processed != 1 || failed != 1 {
		t.Errorf("expected 1 processed and 1 failed pair, got %d and %d", processed, failed)
	}
	if len(entries) != 3 { // A, M, B
		t.Errorf("expected 3 entries from the surviving pair, got %d", len(entries))
	}
}

func TestComputeEntriesSurfacesHubInconsistency(t *testing.T) {
	b := testBuilder(t)

	// H1 belongs to a hub with no member serving linex: that is broken
	// reference data, not a skippable pair.
	segments := []models.Segment{
		models.TransitSegment(0, "H1", "linex"),
		models.DestinationSegment(1, "C"),
	}

	_, _, _, err := b.computeEntries(context.Background(), uuid.New(), segments)
	var consistency *models.DataConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("expected DataConsistencyError, got %v", err)
	}
}

func TestValidateSegments(t *testing.T) {
	b := testBuilder(t)
	routeID := uuid.New()

	tests := []struct {
		name     string
		segments []models.Segment
		wantErr  bool
	}{
		{
			name: "valid route",
			segments: []models.Segment{
				models.TransitSegment(0, "A", "linex"),
				models.DestinationSegment(1, "C"),
			},
		},
		{
			name:     "too few segments",
			segments: []models.Segment{models.DestinationSegment(0, "A")},
			wantErr:  true,
		},
		{
			name: "sequence gap",
			segments: []models.Segment{
				models.TransitSegment(0, "A", "linex"),
				models.DestinationSegment(2, "C"),
			},
			wantErr: true,
		},
		{
			name: "terminal segment is not a destination",
			segments: []models.Segment{
				models.TransitSegment(0, "A", "linex"),
				models.TransitSegment(1, "B", "linex"),
			},
			wantErr: true,
		},
		{
			name: "destination before the end",
			segments: []models.Segment{
				models.DestinationSegment(0, "A"),
				models.DestinationSegment(1, "C"),
			},
			wantErr: true,
		},
		{
			name: "transit segment without a line",
			segments: []models.Segment{
				{Sequence: 0, Kind: models.SegmentTransit, StationID: "A"},
				models.DestinationSegment(1, "C"),
			},
			wantErr: true,
		},
		{
			name: "missing station id",
			segments: []models.Segment{
				models.TransitSegment(0, "", "linex"),
				models.DestinationSegment(1, "C"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.validateSegments(routeID, tt.segments)
			if tt.wantErr {
				var validation *models.ValidationError
				if !errors.As(err, &validation) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected valid segments, got %v", err)
			}
		})
	}
}
