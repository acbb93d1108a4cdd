// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/roundlot/ticker-scout/internal/model"
)

// QueueFilter defines filtering options for review-queue queries.
type QueueFilter struct {
	Status model.MappingStatus
	UserID string
	Limit  int
	Offset int
}

// Storage defines the contract for the mapping store and learning corpus.
type Storage interface {
	// Mapping operations
	CreateMapping(ctx context.Context, mapping *model.MappingRecord) error
	GetMapping(ctx context.Context, id string) (*model.MappingRecord, error)
	GetMappingByTransaction(ctx context.Context, transactionID, userID string) (*model.MappingRecord, error)
	GetQueue(ctx context.Context, filter QueueFilter) ([]model.MappingRecord, error)
	// UpdateMappingStatus applies a compare-and-swap transition: the write
	// succeeds only if the record's current status is one of fromStatuses.
	// A record in any other state fails with common.ErrInvalidTransition.
	UpdateMappingStatus(ctx context.Context, id string, fromStatuses []model.MappingStatus, update MappingUpdate) (*model.MappingRecord, error)

	// Learning corpus operations
	RecordExchange(ctx context.Context, exchange *model.ClassificationExchange) error
	GetExchange(ctx context.Context, id string) (*model.ClassificationExchange, error)
	GetExchangesByMapping(ctx context.Context, mappingID string) ([]model.ClassificationExchange, error)
	GetSimilarExchanges(ctx context.Context, merchantName string, k int) ([]model.ClassificationExchange, error)
	AttachExchangeFeedback(ctx context.Context, exchangeID string, feedback model.ExchangeFeedback) error

	// Rule operations
	SaveRule(ctx context.Context, rule *model.Rule) error
	GetRules(ctx context.Context) ([]model.Rule, error)

	// Aggregate statistics
	RecomputeStats(ctx context.Context) (*model.AggregateStats, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MappingUpdate carries the fields written during a status transition.
// Nil pointers leave the stored value untouched.
type MappingUpdate struct {
	Ticker               *string
	Category             *string
	CanonicalCompanyName *string
	Confidence           *float64
	SourceType           *model.SourceType
	ReviewedBy           *string
	ReviewNote           *string
	ReviewedAt           *time.Time
	AIRequested          *bool
	Status               model.MappingStatus
}

// ReferenceData is the external reference-data collaborator. It is used only
// to sanity-check and normalize canonical company names before a mapping is
// persisted, never to decide the ticker itself.
type ReferenceData interface {
	LookupCompanyName(ticker string) (string, bool)
	ValidateTickerCompanyMatch(ticker, proposedName string) MatchResult
}

// MatchResult is the outcome of a ticker/company-name validation.
type MatchResult struct {
	CorrectedName string
	IsValid       bool
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
