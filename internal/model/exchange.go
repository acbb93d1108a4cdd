package model

import "time"

// AssistStatus is the disposition returned by the AI assist service.
type AssistStatus string

// Assist status constants. StatusError is produced locally when the external
// service fails or returns something unparseable; it never comes off the wire.
const (
	AssistApproved       AssistStatus = "approved"
	AssistRejected       AssistStatus = "rejected"
	AssistReviewRequired AssistStatus = "review_required"
	AssistUncertain      AssistStatus = "uncertain"
	AssistError          AssistStatus = "error"
)

// AssistResult is the parsed outcome of one AI assist invocation.
type AssistResult struct {
	Ticker       string
	Status       AssistStatus
	Reasoning    string
	ModelVersion string
	Latency      time.Duration
	Confidence   float64 // 0-1
}

// ExchangeFeedback is optional moderator feedback attached to an exchange
// after the fact. It is additive; the original exchange row is never rewritten.
type ExchangeFeedback struct {
	CorrectedTicker string
	Note            string
	WasCorrect      bool
}

// ClassificationExchange is one append-only record of a classification
// attempt against the AI assist service, kept both as an audit trail and as
// few-shot retrieval context for future calls.
type ClassificationExchange struct {
	CreatedAt        time.Time
	Feedback         *ExchangeFeedback
	ID               string
	MappingID        string
	MerchantName     string
	Category         string
	RequestPayload   string
	RawResponse      string
	ParsedTicker     string
	ParsedStatus     AssistStatus
	Reasoning        string
	ModelVersion     string
	ProcessingTimeMs int64
	ParsedConfidence float64
	IsError          bool
}
