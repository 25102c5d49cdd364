// Package routeindex turns a user's sparse segment list into a dense
// (line, station) index covering every station the commute actually
// traverses, and keeps that index in the database.
package routeindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/commutewatch-data/internal/refdata"
	"github.com/commutewatch-data/pkg/transit/models"
)

// ResolveStationForLine maps a station to the concrete station identifier
// that serves the given line. A station without a hub serves its own lines
// directly. A hub member may not serve the line itself (the hub groups
// stations of different modes), so the hub's siblings are searched for the
// one that does.
func ResolveStationForLine(ctx context.Context, ref refdata.Provider, station models.Station, lineID string) (string, error) {
	if station.HubID == "" {
		return station.StationID, nil
	}

	siblings, err := ref.HubStations(ctx, station.HubID)
	if err != nil {
		return "", fmt.Errorf("loading stations for hub %s: %w", station.HubID, err)
	}

	var candidates []models.Station
	for _, sibling := range siblings {
		if sibling.ServesLine(lineID) {
			candidates = append(candidates, sibling)
		}
	}

	if len(candidates) == 0 {
		return "", &models.DataConsistencyError{HubID: station.HubID, LineID: lineID}
	}

	return SelectDeterministic(candidates).StationID, nil
}

// CanonicalID returns the identifier preferred in responses: the hub code
// when the station belongs to one, the station's own code otherwise.
func CanonicalID(station models.Station) string {
	if station.HubID != "" {
		return station.HubID
	}
	return station.StationID
}

// SelectDeterministic breaks an ambiguous multi-station match by
// lexicographic order of station identifier, so repeated resolutions of the
// same hub always pick the same station.
func SelectDeterministic(candidates []models.Station) models.Station {
	selected := candidates[0]
	for _, c := range candidates[1:] {
		if c.StationID < selected.StationID {
			selected = c
		}
	}
	return selected
}

// AggregateHubRepresentative builds a synthetic station representing a whole
// hub: the union of every child's lines, the newest child timestamp, and the
// preferred child's identity and coordinates. When preferredChildID is empty
// the first child is used.
func AggregateHubRepresentative(children []models.Station, preferredChildID string) (models.Station, error) {
	if len(children) == 0 {
		return models.Station{}, fmt.Errorf("aggregating hub representative: no child stations")
	}

	base := children[0]
	if preferredChildID != "" {
		found := false
		for _, c := range children {
			if c.StationID == preferredChildID {
				base = c
				found = true
				break
			}
		}
		if !found {
			return models.Station{}, fmt.Errorf("preferred child %s is not a member of the hub", preferredChildID)
		}
	}

	lineSet := make(map[string]struct{})
	newest := base.UpdatedAt
	for _, c := range children {
		for _, l := range c.Lines {
			lineSet[l] = struct{}{}
		}
		if c.UpdatedAt.After(newest) {
			newest = c.UpdatedAt
		}
	}

	lines := make([]string, 0, len(lineSet))
	for l := range lineSet {
		lines = append(lines, l)
	}
	sort.Strings(lines)

	representative := base
	representative.Lines = lines
	representative.UpdatedAt = newest
	return representative, nil
}
