package routeindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/commutewatch-data/internal/refdata"
	"github.com/commutewatch-data/pkg/transit/models"
)

const hubNetwork = `
stations:
  - id: STN1
    name: Riverside Rail
    lines: [mainline]
    hub_id: HUB1
    hub_name: Riverside
  - id: STN2
    name: Riverside Underground
    lines: [circular, express]
    hub_id: HUB1
    hub_name: Riverside
  - id: STN3
    name: Riverside Tram
    lines: [circular]
    hub_id: HUB1
    hub_name: Riverside
  - id: SOLO
    name: Standalone
    lines: [express]
lines:
  - id: express
    name: Express
    mode: rail
    variants:
      - name: full
        direction: outbound
        stations: [STN2, SOLO]
`

func hubProvider(t *testing.T) refdata.Provider {
	t.Helper()
	p, err := refdata.ParseNetwork([]byte(hubNetwork))
	if err != nil {
		t.Fatalf("parsing network: %v", err)
	}
	return p
}

func TestResolveStationForLine(t *testing.T) {
	ctx := context.Background()
	ref := hubProvider(t)

	tests := []struct {
		name      string
		stationID string
		lineID    string
		want      string
	}{
		{name: "station without hub resolves to itself", stationID: "SOLO", lineID: "express", want: "SOLO"},
		{name: "hub member resolves to sibling serving the line", stationID: "STN1", lineID: "express", want: "STN2"},
		{name: "ambiguous match picks lexicographically first", stationID: "STN1", lineID: "circular", want: "STN2"},
		{name: "station resolves within its own hub", stationID: "STN2", lineID: "express", want: "STN2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			station, err := ref.Station(ctx, tt.stationID)
			if err != nil {
				t.Fatalf("loading station: %v", err)
			}
			got, err := ResolveStationForLine(ctx, ref, station, tt.lineID)
			if err != nil {
				t.Fatalf("ResolveStationForLine: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveStationForLineNoServingSibling(t *testing.T) {
	ctx := context.Background()
	ref := hubProvider(t)

	station, err := ref.Station(ctx, "STN1")
	if err != nil {
		t.Fatalf("loading station: %v", err)
	}

	_, err = ResolveStationForLine(ctx, ref, station, "ghost-line")
	if err == nil {
		t.Fatal("expected an error for a line no hub member serves")
	}

	var consistency *models.DataConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("expected DataConsistencyError, got %T: %v", err, err)
	}
	if consistency.HubID != "HUB1" || consistency.LineID != "ghost-line" {
		t.Errorf("unexpected error detail: %+v", consistency)
	}
}

func TestCanonicalIDHubInvariant(t *testing.T) {
	ctx := context.Background()
	ref := hubProvider(t)

	// Every member of a hub maps to the same canonical id.
	for _, stationID := range []string{"STN1", "STN2", "STN3"} {
		station, err := ref.Station(ctx, stationID)
		if err != nil {
			t.Fatalf("loading station: %v", err)
		}
		if got := CanonicalID(station); got != "HUB1" {
			t.Errorf("CanonicalID(%s): expected HUB1, got %s", stationID, got)
		}
	}

	solo, err := ref.Station(ctx, "SOLO")
	if err != nil {
		t.Fatalf("loading station: %v", err)
	}
	if got := CanonicalID(solo); got != "SOLO" {
		t.Errorf("expected SOLO, got %s", got)
	}
}

func TestSelectDeterministic(t *testing.T) {
	candidates := []models.Station{
		{StationID: "C"},
		{StationID: "A"},
		{StationID: "B"},
	}

	if got := SelectDeterministic(candidates).StationID; got != "A" {
		t.Errorf("expected A, got %s", got)
	}

	// Order of candidates must not matter.
	reordered := []models.Station{candidates[1], candidates[2], candidates[0]}
	if got := SelectDeterministic(reordered).StationID; got != "A" {
		t.Errorf("expected A regardless of input order, got %s", got)
	}
}

func TestAggregateHubRepresentative(t *testing.T) {
	older := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	children := []models.Station{
		{StationID: "STN1", Name: "Rail", Lat: 1, Lon: 2, Lines: []string{"mainline"}, UpdatedAt: newer},
		{StationID: "STN2", Name: "Underground", Lat: 3, Lon: 4, Lines: []string{"circular", "mainline"}, UpdatedAt: older},
	}

	rep, err := AggregateHubRepresentative(children, "STN2")
	if err != nil {
		t.Fatalf("AggregateHubRepresentative: %v", err)
	}

	if rep.StationID != "STN2" || rep.Lat != 3 || rep.Lon != 4 {
		t.Errorf("expected identity and coordinates of STN2, got %+v", rep)
	}
	wantLines := []string{"circular", "mainline"}
	if len(rep.Lines) != len(wantLines) {
		t.Fatalf("expected %v, got %v", wantLines, rep.Lines)
	}
	for i, l := range wantLines {
		if rep.Lines[i] != l {
			t.Errorf("expected lines %v, got %v", wantLines, rep.Lines)
			break
		}
	}
	if !rep.UpdatedAt.Equal(newer) {
		t.Errorf("expected newest child timestamp %v, got %v", newer, rep.UpdatedAt)
	}
}

func TestAggregateHubRepresentativeDefaultsToFirstChild(t *testing.T) {
	children := []models.Station{
		{StationID: "STN1", Lines: []string{"a"}},
		{StationID: "STN2", Lines: []string{"b"}},
	}

	rep, err := AggregateHubRepresentative(children, "")
	if err != nil {
		t.Fatalf("AggregateHubRepresentative: %v", err)
	}
	if rep.StationID != "STN1" {
		t.Errorf("expected first child STN1, got %s", rep.StationID)
	}
}

func TestAggregateHubRepresentativeUnknownPreferred(t *testing.T) {
	children := []models.Station{{StationID: "STN1"}}

	if _, err := AggregateHubRepresentative(children, "STN9"); err == nil {
		t.Fatal("expected an error for a preferred child outside the hub")
	}
}
