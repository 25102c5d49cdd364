package refdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/commutewatch-data/internal/common/db"
	"github.com/commutewatch-data/pkg/transit/models"
)

// Store is the Postgres-backed Provider, reading the reference tables the
// upstream data service maintains.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Station(ctx context.Context, stationID string) (models.Station, error) {
	query := `
		SELECT s.station_id, s.name, s.lat, s.lon,
		       COALESCE(s.hub_id, ''), COALESCE(s.hub_name, ''), s.updated_at,
		       COALESCE(array_agg(sl.line_id ORDER BY sl.line_id)
		                FILTER (WHERE sl.line_id IS NOT NULL), '{}')
		FROM transit.stations s
		LEFT JOIN transit.station_lines sl ON sl.station_id = s.station_id
		WHERE s.station_id = $1
		GROUP BY s.station_id, s.name, s.lat, s.lon, s.hub_id, s.hub_name, s.updated_at
	`

	var station models.Station
	err := s.db.DB().QueryRowContext(ctx, query, stationID).Scan(
		&station.StationID,
		&station.Name,
		&station.Lat,
		&station.Lon,
		&station.HubID,
		&station.HubName,
		&station.UpdatedAt,
		pq.Array(&station.Lines),
	)
	if err == sql.ErrNoRows {
		return models.Station{}, fmt.Errorf("station %s: %w", stationID, ErrNotFound)
	}
	if err != nil {
		return models.Station{}, fmt.Errorf("querying station %s: %w", stationID, err)
	}

	return station, nil
}

func (s *Store) HubStations(ctx context.Context, hubID string) ([]models.Station, error) {
	query := `
		SELECT s.station_id, s.name, s.lat, s.lon,
		       COALESCE(s.hub_id, ''), COALESCE(s.hub_name, ''), s.updated_at,
		       COALESCE(array_agg(sl.line_id ORDER BY sl.line_id)
		                FILTER (WHERE sl.line_id IS NOT NULL), '{}')
		FROM transit.stations s
		LEFT JOIN transit.station_lines sl ON sl.station_id = s.station_id
		WHERE s.hub_id = $1
		GROUP BY s.station_id, s.name, s.lat, s.lon, s.hub_id, s.hub_name, s.updated_at
		ORDER BY s.station_id
	`

	rows, err := s.db.DB().QueryContext(ctx, query, hubID)
	if err != nil {
		return nil, fmt.Errorf("querying hub %s stations: %w", hubID, err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var station models.Station
		err := rows.Scan(
			&station.StationID,
			&station.Name,
			&station.Lat,
			&station.Lon,
			&station.HubID,
			&station.HubName,
			&station.UpdatedAt,
			pq.Array(&station.Lines),
		)
		if err != nil {
			return nil, fmt.Errorf("scanning hub station: %w", err)
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hub stations: %w", err)
	}

	if len(stations) == 0 {
		return nil, fmt.Errorf("hub %s: %w", hubID, ErrNotFound)
	}

	return stations, nil
}

func (s *Store) Line(ctx context.Context, lineID string) (models.Line, error) {
	query := `
		SELECT line_id, name, mode, updated_at
		FROM transit.lines
		WHERE line_id = $1
	`

	var line models.Line
	err := s.db.DB().QueryRowContext(ctx, query, lineID).Scan(
		&line.LineID,
		&line.Name,
		&line.Mode,
		&line.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Line{}, fmt.Errorf("line %s: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return models.Line{}, fmt.Errorf("querying line %s: %w", lineID, err)
	}

	variants, err := s.lineVariants(ctx, lineID)
	if err != nil {
		return models.Line{}, err
	}
	line.Variants = variants

	return line, nil
}

func (s *Store) lineVariants(ctx context.Context, lineID string) ([]models.RouteVariant, error) {
	query := `
		SELECT variant_name, direction, station_id
		FROM transit.route_variants
		WHERE line_id = $1
		ORDER BY variant_name, direction, position
	`

	rows, err := s.db.DB().QueryContext(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("querying variants for line %s: %w", lineID, err)
	}
	defer rows.Close()

	var variants []models.RouteVariant
	for rows.Next() {
		var name, direction, stationID string
		if err := rows.Scan(&name, &direction, &stationID); err != nil {
			return nil, fmt.Errorf("scanning variant row: %w", err)
		}

		n := len(variants)
		if n == 0 || variants[n-1].Name != name || variants[n-1].Direction != direction {
			variants = append(variants, models.RouteVariant{Name: name, Direction: direction})
			n++
		}
		variants[n-1].Stations = append(variants[n-1].Stations, stationID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variant rows: %w", err)
	}

	return variants, nil
}
