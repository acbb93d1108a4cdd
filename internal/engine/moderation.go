package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/service"
)

// Moderator exposes the human approve/reject operations. Transitions are
// compare-and-swap writes: of two concurrent actions on the same mapping,
// exactly one wins and the other fails with common.ErrInvalidTransition.
type Moderator struct {
	storage service.Storage
	refData service.ReferenceData
	logger  *slog.Logger
}

// NewModerator creates a moderation interface over the mapping store.
func NewModerator(storage service.Storage, refData service.ReferenceData, logger *slog.Logger) *Moderator {
	return &Moderator{
		storage: storage,
		refData: refData,
		logger:  logger,
	}
}

// Approve moves a pending or needs_review mapping to the terminal approved
// state, stamping the acting identity and time. An optional ticker override
// replaces the stored ticker; the linked AI exchange, if any, receives
// correctness feedback.
func (m *Moderator) Approve(ctx context.Context, mappingID, actorID, note, tickerOverride string) (*model.MappingRecord, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor ID", common.ErrInvalidConfig)
	}

	current, err := m.storage.GetMapping(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	source := model.SourceHuman
	update := service.MappingUpdate{
		Status:     model.StatusApproved,
		ReviewedBy: &actorID,
		ReviewNote: &note,
		ReviewedAt: &now,
		SourceType: &source,
	}
	if tickerOverride != "" {
		update.Ticker = &tickerOverride
		canonical := m.canonicalName(tickerOverride, current.MerchantName)
		update.CanonicalCompanyName = &canonical
	}

	updated, err := m.storage.UpdateMappingStatus(ctx, mappingID, model.ReviewableStatuses(), update)
	if err != nil {
		return nil, err
	}

	finalTicker := updated.Ticker
	m.feedback(ctx, updated, model.ExchangeFeedback{
		WasCorrect:      tickerOverride == "" || tickerOverride == current.Ticker,
		CorrectedTicker: finalTicker,
		Note:            note,
	})

	m.logger.Info("mapping approved",
		"mapping_id", mappingID,
		"actor", actorID,
		"ticker", finalTicker)

	return updated, nil
}

// Reject moves a pending or needs_review mapping to the terminal rejected
// state. A rejected mapping no longer counts against the one-active-mapping
// invariant, so the transaction may be resubmitted when that is enabled.
func (m *Moderator) Reject(ctx context.Context, mappingID, actorID, reason string) (*model.MappingRecord, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor ID", common.ErrInvalidConfig)
	}

	now := time.Now().UTC()
	source := model.SourceHuman
	update := service.MappingUpdate{
		Status:     model.StatusRejected,
		ReviewedBy: &actorID,
		ReviewNote: &reason,
		ReviewedAt: &now,
		SourceType: &source,
	}

	updated, err := m.storage.UpdateMappingStatus(ctx, mappingID, model.ReviewableStatuses(), update)
	if err != nil {
		return nil, err
	}

	m.feedback(ctx, updated, model.ExchangeFeedback{
		WasCorrect: false,
		Note:       reason,
	})

	m.logger.Info("mapping rejected",
		"mapping_id", mappingID,
		"actor", actorID,
		"reason", reason)

	return updated, nil
}

// feedback attaches moderator feedback to the most recent AI exchange for
// the mapping, if one exists. Feedback is additive; failure to attach it
// never fails the moderation action.
func (m *Moderator) feedback(ctx context.Context, mapping *model.MappingRecord, fb model.ExchangeFeedback) {
	if !mapping.AIRequested {
		return
	}

	exchanges, err := m.storage.GetExchangesByMapping(ctx, mapping.ID)
	if err != nil || len(exchanges) == 0 {
		return
	}

	if err := m.storage.AttachExchangeFeedback(ctx, exchanges[0].ID, fb); err != nil {
		common.LogError(err, "failed to attach exchange feedback", common.Fields{
			"mapping_id":  mapping.ID,
			"exchange_id": exchanges[0].ID,
		})
	}
}

func (m *Moderator) canonicalName(ticker, proposed string) string {
	if m.refData == nil {
		return ""
	}
	match := m.refData.ValidateTickerCompanyMatch(ticker, proposed)
	if match.CorrectedName != "" {
		return match.CorrectedName
	}
	if name, ok := m.refData.LookupCompanyName(ticker); ok {
		return name
	}
	return ""
}
