package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Station is a single physical stop. Stations that belong to an interchange
// hub carry the hub identifier; the hub groups stations across modes that
// share one physical location under different stop codes.
type Station struct {
	StationID string
	Name      string
	Lat       float64
	Lon       float64
	Lines     []string
	HubID     string
	HubName   string
	UpdatedAt time.Time
}

// ServesLine reports whether the station is listed against the given line.
func (s Station) ServesLine(lineID string) bool {
	for _, l := range s.Lines {
		if l == lineID {
			return true
		}
	}
	return false
}

// RouteVariant is one published, directional, ordered station sequence for a
// line. Variants are immutable snapshots versioned by the owning line's
// UpdatedAt timestamp.
type RouteVariant struct {
	Name      string
	Direction string
	Stations  []string
}

// Line is a named service with its published route variants.
type Line struct {
	LineID    string
	Name      string
	Mode      string
	Variants  []RouteVariant
	UpdatedAt time.Time
}

type SegmentKind string

const (
	SegmentTransit     SegmentKind = "transit"
	SegmentDestination SegmentKind = "destination"
)

// Segment is one step of a user's commute. A transit segment names the
// station boarded and the line ridden from it; the terminal segment is a
// destination and carries no line.
type Segment struct {
	Sequence  int         `validate:"gte=0"`
	Kind      SegmentKind `validate:"required,oneof=transit destination"`
	StationID string      `validate:"required"`
	LineID    string
}

func TransitSegment(sequence int, stationID, lineID string) Segment {
	return Segment{Sequence: sequence, Kind: SegmentTransit, StationID: stationID, LineID: lineID}
}

func DestinationSegment(sequence int, stationID string) Segment {
	return Segment{Sequence: sequence, Kind: SegmentDestination, StationID: stationID}
}

// UserRoute is a user-authored commute: an ordered list of segments ending in
// a destination segment.
type UserRoute struct {
	RouteID  uuid.UUID
	UserID   uuid.UUID
	Name     string
	Segments []Segment `validate:"min=2,dive"`
}

// Schedule is a monitoring window for a route, expressed in the route's local
// timezone. Times are "15:04" wall-clock strings.
type Schedule struct {
	ScheduleID uuid.UUID
	RouteID    uuid.UUID
	Days       []time.Weekday
	StartTime  string
	EndTime    string
	Timezone   string
}

// ActiveWindow reports whether now falls inside the schedule's window for the
// current local day, and if so returns the window's end instant.
func (s Schedule) ActiveWindow(now time.Time) (end time.Time, active bool, err error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("loading timezone %q: %w", s.Timezone, err)
	}

	local := now.In(loc)
	dayMatch := false
	for _, d := range s.Days {
		if local.Weekday() == d {
			dayMatch = true
			break
		}
	}
	if !dayMatch {
		return time.Time{}, false, nil
	}

	start, err := atLocalTime(local, s.StartTime, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing start time %q: %w", s.StartTime, err)
	}
	windowEnd, err := atLocalTime(local, s.EndTime, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing end time %q: %w", s.EndTime, err)
	}

	if local.Before(start) || local.After(windowEnd) {
		return time.Time{}, false, nil
	}
	return windowEnd, true, nil
}

func atLocalTime(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// AffectedSection is the station-level detail a disruption report may carry.
type AffectedSection struct {
	Name       string
	StationIDs []string
}

// Disruption is one currently reported problem on a line. Reports are
// ephemeral: the feed is re-fetched whole every monitoring cycle. Status is
// the operator's severity name ("Severe Delays", "Good Service", ...).
type Disruption struct {
	LineID   string
	Mode     string
	Status   string
	Reason   string
	Sections []AffectedSection
}

// Pair is one (line, station) fact: a route rides this line through this
// station, or a disruption touches this station on this line.
type Pair struct {
	LineID    string
	StationID string
}

type PairSet map[Pair]struct{}

func (ps PairSet) Add(p Pair)           { ps[p] = struct{}{} }
func (ps PairSet) Contains(p Pair) bool { _, ok := ps[p]; return ok }

// IndexEntry is one active row of a route's station index, tagged with the
// version of the line data it was expanded from.
type IndexEntry struct {
	RouteID     uuid.UUID
	LineID      string
	StationID   string
	LineVersion time.Time
}

// RebuildResult summarises one index rebuild so degraded rebuilds (pairs
// skipped on expansion failure) are detectable by the caller.
type RebuildResult struct {
	RouteID        uuid.UUID
	EntriesCreated int
	PairsProcessed int
	PairsFailed    int
}

// MatchResult is the outcome of matching one route against the current
// disruption set. AffectedSegments and AffectedStations are derived from the
// route's own named stops, not the expanded index, for display purposes.
type MatchResult struct {
	Disruptions      []Disruption
	AffectedSegments []int
	AffectedStations []string
}

func (r MatchResult) HasDisruptions() bool { return len(r.Disruptions) > 0 }
