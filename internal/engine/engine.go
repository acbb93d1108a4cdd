// Package engine orchestrates the merchant classification pipeline: rule
// match, confidence routing, optional AI assist, and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/roundup"
	"github.com/roundlot/ticker-scout/internal/service"
)

// Config holds configuration options for the classification engine.
type Config struct {
	Thresholds        Thresholds
	AllowResubmission bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:        DefaultThresholds(),
		AllowResubmission: true,
	}
}

// Engine runs each classification request as an independent unit of work:
// normalize, rule match, route, optional assist, persist. Units for
// different transactions are safe to run fully in parallel; the rule set is
// read-only and per-record write ordering comes from the storage CAS.
type Engine struct {
	storage           service.Storage
	classifier        Classifier
	assistant         Assistant
	refData           service.ReferenceData
	router            *Router
	logger            *slog.Logger
	allowResubmission bool
}

// New creates a classification engine with default configuration.
func New(storage service.Storage, classifier Classifier, assistant Assistant, refData service.ReferenceData, logger *slog.Logger) *Engine {
	return NewWithConfig(storage, classifier, assistant, refData, logger, DefaultConfig())
}

// NewWithConfig creates a classification engine with custom configuration.
func NewWithConfig(storage service.Storage, classifier Classifier, assistant Assistant, refData service.ReferenceData, logger *slog.Logger, config Config) *Engine {
	return &Engine{
		storage:           storage,
		classifier:        classifier,
		assistant:         assistant,
		refData:           refData,
		router:            NewRouter(config.Thresholds),
		logger:            logger,
		allowResubmission: config.AllowResubmission,
	}
}

// SubmitRequest is one transaction needing a ticker.
type SubmitRequest struct {
	Amount        decimal.Decimal
	TransactionID string
	UserID        string
	MerchantName  string
	CategoryHint  string
}

// Submit classifies a merchant and persists a mapping record, returning the
// mapping ID. A second submission while an active mapping exists fails with
// common.ErrDuplicateMapping. Classification failures never surface as
// errors; they route the mapping to needs_review.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if req.TransactionID == "" {
		return "", fmt.Errorf("%w: transaction ID", common.ErrInvalidConfig)
	}
	if req.UserID == "" {
		return "", fmt.Errorf("%w: user ID", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(req.MerchantName) == "" {
		return "", common.ErrEmptyMerchantName
	}

	if !e.allowResubmission {
		// With resubmission disabled, any prior record refuses the submit,
		// rejected ones included.
		_, err := e.storage.GetMappingByTransaction(ctx, req.TransactionID, req.UserID)
		switch {
		case err == nil:
			return "", fmt.Errorf("%w: transaction %s, user %s",
				common.ErrDuplicateMapping, req.TransactionID, req.UserID)
		case !errors.Is(err, common.ErrNotFound):
			return "", err
		}
	}

	candidate := e.classifier.Classify(req.MerchantName)
	decision := e.router.Route(candidate)

	mapping := &model.MappingRecord{
		ID:            uuid.New().String(),
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		MerchantName:  req.MerchantName,
		Status:        model.StatusPending,
		SourceType:    model.SourceNone,
		RoundUpCents:  roundup.SpareChangeCents(req.Amount),
		AIRequested:   decision.NeedsAI,
	}
	if candidate != nil {
		mapping.Ticker = candidate.Ticker
		mapping.Category = candidate.Category
		mapping.Confidence = candidate.Confidence
		mapping.SourceType = sourceForMethod(candidate.Method)
		mapping.CanonicalCompanyName = e.canonicalName(candidate.Ticker, req.MerchantName)
	}

	if err := e.storage.CreateMapping(ctx, mapping); err != nil {
		return "", err
	}

	e.logger.Info("mapping submitted",
		"mapping_id", mapping.ID,
		"transaction_id", req.TransactionID,
		"merchant", req.MerchantName,
		"initial_status", decision.Status,
		"needs_ai", decision.NeedsAI)

	if decision.NeedsAI {
		decision = e.assistAndReroute(ctx, mapping, candidate, req.CategoryHint)
	}

	if err := e.finalizeRouting(ctx, mapping, candidate, decision); err != nil {
		return "", err
	}

	return mapping.ID, nil
}

// assistAndReroute asks the AI for a second opinion while the mapping is
// still pending, then routes the stronger of the two signals. Assist
// failures behave exactly like a low-confidence review case.
func (e *Engine) assistAndReroute(ctx context.Context, mapping *model.MappingRecord, candidate *model.ClassificationCandidate, categoryHint string) Decision {
	hint := categoryHint
	if hint == "" && candidate != nil {
		hint = candidate.Category
	}

	result := e.assistant.Assist(ctx, mapping.ID, mapping.MerchantName, hint)

	if result.Status == model.AssistError || result.Ticker == "" {
		return Decision{Status: model.StatusNeedsReview, NeedsAI: false}
	}

	aiCandidate := &model.ClassificationCandidate{
		Ticker:     result.Ticker,
		Category:   hint,
		Confidence: result.Confidence * 100,
		Method:     model.MethodAIAssist,
		Evidence:   result.Reasoning,
	}

	e.adoptAICandidate(mapping, candidate, aiCandidate)

	// Only an AI verdict the parser let stand as approved may auto-apply.
	if result.Status != model.AssistApproved {
		return Decision{Status: model.StatusNeedsReview, NeedsAI: false}
	}

	decision := e.router.Route(aiCandidate)
	decision.NeedsAI = false
	return decision
}

// adoptAICandidate keeps the stronger signal on the mapping.
func (e *Engine) adoptAICandidate(mapping *model.MappingRecord, ruleCandidate, aiCandidate *model.ClassificationCandidate) {
	if ruleCandidate != nil && ruleCandidate.Confidence >= aiCandidate.Confidence {
		return
	}
	mapping.Ticker = aiCandidate.Ticker
	if aiCandidate.Category != "" {
		mapping.Category = aiCandidate.Category
	}
	mapping.Confidence = aiCandidate.Confidence
	mapping.SourceType = model.SourceAssist
	mapping.CanonicalCompanyName = e.canonicalName(aiCandidate.Ticker, mapping.MerchantName)
}

// finalizeRouting applies the routed status to the pending record.
func (e *Engine) finalizeRouting(ctx context.Context, mapping *model.MappingRecord, candidate *model.ClassificationCandidate, decision Decision) error {
	update := service.MappingUpdate{
		Status:               decision.Status,
		Ticker:               &mapping.Ticker,
		Category:             &mapping.Category,
		CanonicalCompanyName: &mapping.CanonicalCompanyName,
		Confidence:           &mapping.Confidence,
		SourceType:           &mapping.SourceType,
		AIRequested:          &mapping.AIRequested,
	}

	updated, err := e.storage.UpdateMappingStatus(ctx, mapping.ID,
		[]model.MappingStatus{model.StatusPending}, update)
	if err != nil {
		return fmt.Errorf("failed to finalize mapping %s: %w", mapping.ID, err)
	}
	*mapping = *updated

	e.logger.Info("mapping routed",
		"mapping_id", mapping.ID,
		"status", mapping.Status,
		"ticker", mapping.Ticker,
		"confidence", mapping.Confidence)

	return nil
}

// canonicalName normalizes the company name for a ticker through the
// reference-data collaborator. The ticker itself is never second-guessed.
func (e *Engine) canonicalName(ticker, proposed string) string {
	if ticker == "" || e.refData == nil {
		return ""
	}

	match := e.refData.ValidateTickerCompanyMatch(ticker, proposed)
	if match.CorrectedName != "" {
		return match.CorrectedName
	}
	if name, ok := e.refData.LookupCompanyName(ticker); ok {
		return name
	}
	return ""
}

// GetMapping returns the mapping for a transaction, or common.ErrNotFound.
func (e *Engine) GetMapping(ctx context.Context, transactionID, userID string) (*model.MappingRecord, error) {
	return e.storage.GetMappingByTransaction(ctx, transactionID, userID)
}

// GetQueue returns mapping records for a human-review surface.
func (e *Engine) GetQueue(ctx context.Context, filter service.QueueFilter) ([]model.MappingRecord, error) {
	return e.storage.GetQueue(ctx, filter)
}

// GetStats recomputes and returns aggregate statistics.
func (e *Engine) GetStats(ctx context.Context) (*model.AggregateStats, error) {
	return e.storage.RecomputeStats(ctx)
}

func sourceForMethod(method model.ClassificationMethod) model.SourceType {
	switch method {
	case model.MethodExact, model.MethodPattern:
		return model.SourceRule
	case model.MethodFuzzy:
		return model.SourceFuzzy
	case model.MethodAIAssist:
		return model.SourceAssist
	case model.MethodModerator:
		return model.SourceHuman
	}
	return model.SourceNone
}
