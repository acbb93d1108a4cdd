package model

import "time"

// AggregateStats summarizes the mapping corpus. It is a derived, rebuildable
// cache recomputed from MappingRecord rows in a single snapshot; it is never
// incremented in place and never authoritative.
type AggregateStats struct {
	ComputedAt           time.Time
	ByStatus             map[MappingStatus]int
	TotalMappings        int
	ProcessedToday       int
	AvgAppliedConfidence float64
}
