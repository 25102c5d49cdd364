// Package alerting matches current disruption reports against route station
// indexes and decides, per route and monitoring window, whether a
// notification is due.
package alerting

import (
	"sort"

	"github.com/commutewatch-data/pkg/transit/models"
)

// ModeSeverity identifies one administratively non-alertable combination.
// An empty Mode matches any mode.
type ModeSeverity struct {
	Mode   string
	Status string
}

// DefaultNonAlertable covers the operator's "everything is fine" statuses,
// which every feed reports but nobody wants an alert for.
func DefaultNonAlertable() []ModeSeverity {
	return []ModeSeverity{
		{Mode: "", Status: "Good Service"},
		{Mode: "", Status: "No Issues"},
	}
}

// Matcher tests disruptions against route indexes. Unlisted (mode, severity)
// combinations are alertable.
type Matcher struct {
	nonAlertable map[ModeSeverity]struct{}
}

func NewMatcher(nonAlertable []ModeSeverity) *Matcher {
	m := &Matcher{nonAlertable: make(map[ModeSeverity]struct{})}
	for _, ms := range nonAlertable {
		m.nonAlertable[ms] = struct{}{}
	}
	return m
}

// FilterAlertable drops disruptions whose (mode, severity) is marked
// non-alertable.
func (m *Matcher) FilterAlertable(disruptions []models.Disruption) []models.Disruption {
	var alertable []models.Disruption
	for _, d := range disruptions {
		if m.isAlertable(d) {
			alertable = append(alertable, d)
		}
	}
	return alertable
}

func (m *Matcher) isAlertable(d models.Disruption) bool {
	if _, ok := m.nonAlertable[ModeSeverity{Mode: d.Mode, Status: d.Status}]; ok {
		return false
	}
	if _, ok := m.nonAlertable[ModeSeverity{Status: d.Status}]; ok {
		return false
	}
	return true
}

// ExtractPairs derives the (line, station) pairs a disruption touches from
// its reported affected sections. A disruption with no section detail yields
// no pairs and is therefore excluded from station-level matching.
func ExtractPairs(d models.Disruption) []models.Pair {
	var pairs []models.Pair
	seen := make(models.PairSet)
	for _, section := range d.Sections {
		for _, stationID := range section.StationIDs {
			pair := models.Pair{LineID: d.LineID, StationID: stationID}
			if seen.Contains(pair) {
				continue
			}
			seen.Add(pair)
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// AffectsRoute reports whether any disruption pair is a member of the
// route's pair set. Intersection, not subset: one shared pair is enough.
func AffectsRoute(disruptionPairs []models.Pair, routePairs models.PairSet) bool {
	for _, pair := range disruptionPairs {
		if routePairs.Contains(pair) {
			return true
		}
	}
	return false
}

// MatchRoute intersects the route's index with the given disruptions and,
// for the matched subset, computes which of the user's own named segments
// and stations are hit. Display detail comes from the route's segments, not
// the expanded index: the user wants their named stops, not every
// intermediate one.
func (m *Matcher) MatchRoute(route models.UserRoute, index models.PairSet, disruptions []models.Disruption) models.MatchResult {
	var result models.MatchResult

	disruptionPairs := make(models.PairSet)
	for _, d := range disruptions {
		pairs := ExtractPairs(d)
		if !AffectsRoute(pairs, index) {
			continue
		}
		result.Disruptions = append(result.Disruptions, d)
		for _, pair := range pairs {
			disruptionPairs.Add(pair)
		}
	}

	if len(result.Disruptions) == 0 {
		return result
	}

	stationSet := make(map[string]struct{})
	for i := 0; i < len(route.Segments)-1; i++ {
		current, next := route.Segments[i], route.Segments[i+1]
		if current.Kind != models.SegmentTransit {
			continue
		}

		segmentPairs := []models.Pair{
			{LineID: current.LineID, StationID: current.StationID},
			{LineID: current.LineID, StationID: next.StationID},
		}

		hit := false
		for _, pair := range segmentPairs {
			if disruptionPairs.Contains(pair) {
				hit = true
				stationSet[pair.StationID] = struct{}{}
			}
		}
		if hit {
			result.AffectedSegments = append(result.AffectedSegments, current.Sequence)
		}
	}

	sort.Ints(result.AffectedSegments)
	for stationID := range stationSet {
		result.AffectedStations = append(result.AffectedStations, stationID)
	}
	sort.Strings(result.AffectedStations)

	return result
}
