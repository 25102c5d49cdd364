package models

import "fmt"

// DataConsistencyError means the reference data is internally inconsistent
// (a hub with no member station serving a line the hub is queried against).
// It is surfaced, not retried: upstream data needs repair.
type DataConsistencyError struct {
	HubID  string
	LineID string
}

func (e *DataConsistencyError) Error() string {
	return fmt.Sprintf("no station in hub %s serves line %s", e.HubID, e.LineID)
}

// SegmentExpansionError means no published variant of a line contains both
// boundary stations of a route segment pair. The pair is skipped and the
// rebuild continues with partial coverage.
type SegmentExpansionError struct {
	LineID        string
	FromStationID string
	ToStationID   string
}

func (e *SegmentExpansionError) Error() string {
	return fmt.Sprintf("no variant of line %s connects %s and %s",
		e.LineID, e.FromStationID, e.ToStationID)
}

// ValidationError rejects a structurally invalid route at the mutation
// boundary, before any index work begins.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid route: " + e.Reason
}
