package routeindex

import (
	"github.com/commutewatch-data/pkg/transit/models"
)

// Expand returns every station traversed between two boundary stations on a
// line, in first-seen order. Each published variant containing both stations
// contributes its inclusive sub-sequence, direction-agnostic, and the
// contributions are unioned. On a branching line this deliberately includes
// every physical path between the two stations rather than guessing the
// rider's branch, so a disruption on any of them is never missed.
func Expand(line models.Line, fromID, toID string) ([]string, error) {
	var stations []string
	seen := make(map[string]struct{})
	matched := false

	for _, variant := range line.Variants {
		fromIdx := indexOf(variant.Stations, fromID)
		toIdx := indexOf(variant.Stations, toID)
		if fromIdx < 0 || toIdx < 0 {
			continue
		}
		matched = true

		lo, hi := fromIdx, toIdx
		if lo > hi {
			lo, hi = hi, lo
		}
		for _, id := range variant.Stations[lo : hi+1] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			stations = append(stations, id)
		}
	}

	if !matched {
		return nil, &models.SegmentExpansionError{
			LineID:        line.LineID,
			FromStationID: fromID,
			ToStationID:   toID,
		}
	}

	return stations, nil
}

func indexOf(stations []string, id string) int {
	for i, s := range stations {
		if s == id {
			return i
		}
	}
	return -1
}
