package routeindex

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/commutewatch-data/internal/common/db"
	"github.com/commutewatch-data/pkg/transit/models"
)

// Store owns the route and index tables. Index rows are superseded by
// flipping is_active rather than deleting, so rebuilds stay auditable while
// matching only ever reads active rows.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) LoadRoute(ctx context.Context, routeID uuid.UUID) (models.UserRoute, error) {
	query := `
		SELECT route_id, user_id, name
		FROM commute.routes
		WHERE route_id = $1
	`

	var route models.UserRoute
	err := s.db.DB().QueryRowContext(ctx, query, routeID).Scan(
		&route.RouteID,
		&route.UserID,
		&route.Name,
	)
	if err == sql.ErrNoRows {
		return models.UserRoute{}, fmt.Errorf("route %s not found", routeID)
	}
	if err != nil {
		return models.UserRoute{}, fmt.Errorf("querying route %s: %w", routeID, err)
	}

	segments, err := s.LoadSegments(ctx, routeID)
	if err != nil {
		return models.UserRoute{}, err
	}
	route.Segments = segments

	return route, nil
}

func (s *Store) LoadSegments(ctx context.Context, routeID uuid.UUID) ([]models.Segment, error) {
	query := `
		SELECT sequence, kind, station_id, COALESCE(line_id, '')
		FROM commute.route_segments
		WHERE route_id = $1
		ORDER BY sequence
	`

	rows, err := s.db.DB().QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("querying segments for route %s: %w", routeID, err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.Sequence, &seg.Kind, &seg.StationID, &seg.LineID); err != nil {
			return nil, fmt.Errorf("scanning segment row: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating segment rows: %w", err)
	}

	return segments, nil
}

// MarkInactive supersedes every active index row of a route within the given
// transaction. Returns the number of rows superseded.
func (s *Store) MarkInactive(ctx context.Context, tx *sql.Tx, routeID uuid.UUID) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE commute.route_station_index
		SET is_active = false, superseded_at = now()
		WHERE route_id = $1 AND is_active = true`, routeID)
	if err != nil {
		return 0, fmt.Errorf("superseding index entries for route %s: %w", routeID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting superseded row count: %w", err)
	}
	return rows, nil
}

// InsertEntries writes new active index rows within the given transaction.
func (s *Store) InsertEntries(ctx context.Context, tx *sql.Tx, entries []models.IndexEntry) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commute.route_station_index
			(route_id, line_id, station_id, line_version, is_active, created_at)
		VALUES ($1, $2, $3, $4, true, now())`)
	if err != nil {
		return fmt.Errorf("preparing index insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err := stmt.ExecContext(ctx, entry.RouteID, entry.LineID, entry.StationID, entry.LineVersion)
		if err != nil {
			return fmt.Errorf("inserting index entry (%s, %s): %w", entry.LineID, entry.StationID, err)
		}
	}

	return nil
}

// ActivePairs loads the route's active index as a pair set for matching.
func (s *Store) ActivePairs(ctx context.Context, routeID uuid.UUID) (models.PairSet, error) {
	query := `
		SELECT line_id, station_id
		FROM commute.route_station_index
		WHERE route_id = $1 AND is_active = true
	`

	rows, err := s.db.DB().QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("querying index for route %s: %w", routeID, err)
	}
	defer rows.Close()

	pairs := make(models.PairSet)
	for rows.Next() {
		var pair models.Pair
		if err := rows.Scan(&pair.LineID, &pair.StationID); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		pairs.Add(pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index rows: %w", err)
	}

	return pairs, nil
}

// ListRouteIDs returns every route id, for bulk rebuilds.
func (s *Store) ListRouteIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.DB().QueryContext(ctx, `SELECT route_id FROM commute.routes ORDER BY route_id`)
	if err != nil {
		return nil, fmt.Errorf("listing routes: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning route id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating route ids: %w", err)
	}

	return ids, nil
}

// LineVersions returns, per line, the reference-data version the route's
// active index entries were expanded from. Used for staleness detection
// against the current line timestamps.
func (s *Store) LineVersions(ctx context.Context, routeID uuid.UUID) (map[string]time.Time, error) {
	query := `
		SELECT line_id, MAX(line_version)
		FROM commute.route_station_index
		WHERE route_id = $1 AND is_active = true
		GROUP BY line_id
	`

	rows, err := s.db.DB().QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("querying line versions for route %s: %w", routeID, err)
	}
	defer rows.Close()

	versions := make(map[string]time.Time)
	for rows.Next() {
		var lineID string
		var version time.Time
		if err := rows.Scan(&lineID, &version); err != nil {
			return nil, fmt.Errorf("scanning line version: %w", err)
		}
		versions[lineID] = version
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating line versions: %w", err)
	}

	return versions, nil
}
