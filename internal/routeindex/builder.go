package routeindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/commutewatch-data/internal/common/db"
	"github.com/commutewatch-data/internal/common/logger"
	"github.com/commutewatch-data/internal/refdata"
	"github.com/commutewatch-data/pkg/transit/models"
)

// Builder rebuilds a route's station index from its segments. A rebuild
// fully replaces the prior index: existing rows are superseded and the fresh
// expansion inserted in one transaction, so a concurrent matcher sees either
// the old index or the new one, never a mix.
type Builder struct {
	db       *db.DB
	store    *Store
	ref      refdata.Provider
	logger   logger.Logger
	validate *validator.Validate
}

// BulkRebuildResult summarises a rebuild-all run. Per-route failures are
// counted, not fatal.
type BulkRebuildResult struct {
	RoutesProcessed int
	RoutesFailed    int
	EntriesCreated  int
}

func NewBuilder(database *db.DB, ref refdata.Provider, log logger.Logger) *Builder {
	return &Builder{
		db:       database,
		store:    NewStore(database),
		ref:      ref,
		logger:   log,
		validate: validator.New(),
	}
}

// Store exposes the builder's index store for read-side callers.
func (b *Builder) Store() *Store {
	return b.store
}

// Rebuild replaces the station index of one route. Expansion failure for a
// single segment pair is logged and skipped; the route keeps partial
// coverage and the result reports how many pairs succeeded. Structurally
// invalid segments reject the rebuild before any index work.
func (b *Builder) Rebuild(ctx context.Context, routeID uuid.UUID) (models.RebuildResult, error) {
	result := models.RebuildResult{RouteID: routeID}

	segments, err := b.store.LoadSegments(ctx, routeID)
	if err != nil {
		return result, fmt.Errorf("loading segments: %w", err)
	}

	if err := b.validateSegments(routeID, segments); err != nil {
		return result, err
	}

	entries, processed, failed, err := b.computeEntries(ctx, routeID, segments)
	if err != nil {
		return result, err
	}
	result.PairsProcessed = processed
	result.PairsFailed = failed

	tx, err := b.db.BeginTx(ctx)
	if err != nil {
		return result, fmt.Errorf("beginning rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	superseded, err := b.store.MarkInactive(ctx, tx, routeID)
	if err != nil {
		return result, err
	}

	if err := b.store.InsertEntries(ctx, tx, entries); err != nil {
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing rebuild transaction: %w", err)
	}

	result.EntriesCreated = len(entries)

	b.logger.Info("Rebuilt route station index",
		"route_id", routeID,
		"entries_created", result.EntriesCreated,
		"entries_superseded", superseded,
		"pairs_processed", result.PairsProcessed,
		"pairs_failed", result.PairsFailed)

	return result, nil
}

// RebuildAll rebuilds every route, tolerating per-route failures. Used after
// upstream route-variant data changes.
func (b *Builder) RebuildAll(ctx context.Context) (BulkRebuildResult, error) {
	var result BulkRebuildResult

	routeIDs, err := b.store.ListRouteIDs(ctx)
	if err != nil {
		return result, err
	}

	for _, routeID := range routeIDs {
		rebuild, err := b.Rebuild(ctx, routeID)
		result.RoutesProcessed++
		if err != nil {
			result.RoutesFailed++
			b.logger.Error("Route rebuild failed", "route_id", routeID, "error", err)
			continue
		}
		result.EntriesCreated += rebuild.EntriesCreated
	}

	b.logger.Info("Bulk rebuild completed",
		"routes_processed", result.RoutesProcessed,
		"routes_failed", result.RoutesFailed,
		"entries_created", result.EntriesCreated)

	return result, nil
}

// HasStaleIndex reports whether any line the route's active index was
// expanded from has newer reference data than the entries were tagged with.
func (b *Builder) HasStaleIndex(ctx context.Context, routeID uuid.UUID) (bool, error) {
	versions, err := b.store.LineVersions(ctx, routeID)
	if err != nil {
		return false, err
	}

	for lineID, indexed := range versions {
		line, err := b.ref.Line(ctx, lineID)
		if err != nil {
			return false, fmt.Errorf("loading line %s: %w", lineID, err)
		}
		if line.UpdatedAt.After(indexed) {
			return true, nil
		}
	}

	return false, nil
}

// validateSegments rejects structurally invalid routes at the mutation
// boundary: fewer than two segments, gaps in the sequence, a terminal
// segment that is not a destination, or a transit segment without a line.
func (b *Builder) validateSegments(routeID uuid.UUID, segments []models.Segment) error {
	route := models.UserRoute{RouteID: routeID, Segments: segments}
	if err := b.validate.Struct(route); err != nil {
		return &models.ValidationError{Reason: err.Error()}
	}

	for i, seg := range segments {
		if seg.Sequence != i {
			return &models.ValidationError{
				Reason: fmt.Sprintf("segment sequence gap: expected %d, got %d", i, seg.Sequence),
			}
		}
		last := i == len(segments)-1
		if last && seg.Kind != models.SegmentDestination {
			return &models.ValidationError{Reason: "terminal segment must be a destination"}
		}
		if !last && seg.Kind != models.SegmentTransit {
			return &models.ValidationError{
				Reason: fmt.Sprintf("segment %d: only the terminal segment may be a destination", i),
			}
		}
		if seg.Kind == models.SegmentTransit && seg.LineID == "" {
			return &models.ValidationError{Reason: fmt.Sprintf("transit segment %d has no line", i)}
		}
	}

	return nil
}

// computeEntries expands every consecutive segment pair into index entries.
// Expansion and lookup failures skip the pair; inconsistent hub data aborts
// the rebuild since it needs upstream repair, not a retry.
func (b *Builder) computeEntries(ctx context.Context, routeID uuid.UUID, segments []models.Segment) (entries []models.IndexEntry, processed, failed int, err error) {
	seen := make(models.PairSet)

	for i := 0; i < len(segments)-1; i++ {
		current, next := segments[i], segments[i+1]
		if current.Kind != models.SegmentTransit {
			continue
		}

		pairEntries, pairErr := b.expandPair(ctx, routeID, current, next)
		if pairErr != nil {
			var consistency *models.DataConsistencyError
			if errors.As(pairErr, &consistency) {
				return nil, processed, failed, pairErr
			}
			failed++
			b.logger.Warn("Skipping segment pair",
				"route_id", routeID,
				"sequence", current.Sequence,
				"line_id", current.LineID,
				"error", pairErr)
			continue
		}

		processed++
		for _, entry := range pairEntries {
			pair := models.Pair{LineID: entry.LineID, StationID: entry.StationID}
			if seen.Contains(pair) {
				continue
			}
			seen.Add(pair)
			entries = append(entries, entry)
		}
	}

	return entries, processed, failed, nil
}

func (b *Builder) expandPair(ctx context.Context, routeID uuid.UUID, current, next models.Segment) ([]models.IndexEntry, error) {
	line, err := b.ref.Line(ctx, current.LineID)
	if err != nil {
		return nil, fmt.Errorf("loading line %s: %w", current.LineID, err)
	}

	fromStation, err := b.ref.Station(ctx, current.StationID)
	if err != nil {
		return nil, fmt.Errorf("loading station %s: %w", current.StationID, err)
	}
	toStation, err := b.ref.Station(ctx, next.StationID)
	if err != nil {
		return nil, fmt.Errorf("loading station %s: %w", next.StationID, err)
	}

	fromID, err := ResolveStationForLine(ctx, b.ref, fromStation, line.LineID)
	if err != nil {
		return nil, err
	}
	toID, err := ResolveStationForLine(ctx, b.ref, toStation, line.LineID)
	if err != nil {
		return nil, err
	}

	stations, err := Expand(line, fromID, toID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.IndexEntry, 0, len(stations))
	for _, stationID := range stations {
		entries = append(entries, models.IndexEntry{
			RouteID:     routeID,
			LineID:      line.LineID,
			StationID:   stationID,
			LineVersion: line.UpdatedAt,
		})
	}
	return entries, nil
}
