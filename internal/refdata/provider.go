// Package refdata supplies line and station reference data: station/hub
// metadata and the published route variants of each line. The data is owned
// and refreshed by an upstream service; everything here is read-only.
package refdata

import (
	"context"
	"errors"

	"github.com/commutewatch-data/pkg/transit/models"
)

// ErrNotFound is returned when a station, hub or line is not present in the
// reference data.
var ErrNotFound = errors.New("reference data: not found")

type Provider interface {
	// Station returns the station with the given identifier.
	Station(ctx context.Context, stationID string) (models.Station, error)

	// HubStations returns every station grouped under the given hub.
	HubStations(ctx context.Context, hubID string) ([]models.Station, error)

	// Line returns the line with its route variants.
	Line(ctx context.Context, lineID string) (models.Line, error)
}
