// Package model defines the core domain models used throughout the application.
package model

import "time"

// MappingStatus tracks where a merchant mapping sits in its lifecycle.
type MappingStatus string

// Mapping status constants.
const (
	StatusPending     MappingStatus = "pending"
	StatusNeedsReview MappingStatus = "needs_review"
	StatusAutoApplied MappingStatus = "auto_applied"
	StatusApproved    MappingStatus = "approved"
	StatusRejected    MappingStatus = "rejected"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s MappingStatus) IsTerminal() bool {
	switch s {
	case StatusAutoApplied, StatusApproved, StatusRejected:
		return true
	case StatusPending, StatusNeedsReview:
		return false
	}
	return false
}

// IsActive reports whether s counts against the one-active-mapping invariant.
// Only rejected mappings may be superseded by a new submission.
func (s MappingStatus) IsActive() bool {
	return s != StatusRejected
}

// ReviewableStatuses are the statuses a moderator may act on.
func ReviewableStatuses() []MappingStatus {
	return []MappingStatus{StatusPending, StatusNeedsReview}
}

// SourceType records which stage produced the mapping's current ticker.
type SourceType string

// Source type constants.
const (
	SourceRule   SourceType = "rule"
	SourceFuzzy  SourceType = "fuzzy"
	SourceAssist SourceType = "assist"
	SourceHuman  SourceType = "human"
	SourceNone   SourceType = "none"
)

// MappingRecord associates a transaction's merchant name with a tradable
// ticker and spending category. At most one active (non-rejected) record
// exists per (TransactionID, UserID) pair.
type MappingRecord struct {
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ReviewedAt           *time.Time
	ID                   string
	TransactionID        string
	UserID               string
	MerchantName         string
	CanonicalCompanyName string
	Ticker               string
	Category             string
	Status               MappingStatus
	SourceType           SourceType
	ReviewedBy           string
	ReviewNote           string
	RoundUpCents         int64
	Confidence           float64
	AIRequested          bool
}
