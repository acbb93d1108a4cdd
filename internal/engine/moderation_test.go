package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/refdata"
	"github.com/roundlot/ticker-scout/internal/service"
	"github.com/roundlot/ticker-scout/internal/testutil"
)

func newTestModerator(t *testing.T) (*Moderator, service.Storage) {
	t.Helper()
	store := testutil.SetupTestDB(t)
	return NewModerator(store, refdata.DefaultReferenceData(), testLogger()), store
}

func seedMapping(t *testing.T, store service.Storage, status model.MappingStatus, aiRequested bool) *model.MappingRecord {
	t.Helper()
	mapping := &model.MappingRecord{
		ID:                   uuid.New().String(),
		TransactionID:        uuid.New().String(),
		UserID:               "user-1",
		MerchantName:         "STARBUCKS STORE #1234",
		CanonicalCompanyName: "Starbucks Corporation",
		Ticker:               "SBUX",
		Category:             "Coffee & Dining",
		Confidence:           80,
		Status:               status,
		SourceType:           model.SourceRule,
		AIRequested:          aiRequested,
	}
	require.NoError(t, store.CreateMapping(context.Background(), mapping))
	return mapping
}

func TestApprove(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, false)

	before := time.Now().UTC().Add(-time.Second)
	updated, err := moderator.Approve(ctx, mapping.ID, "ops@example.com", "looks right", "")
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, updated.Status)
	assert.Equal(t, "ops@example.com", updated.ReviewedBy)
	assert.Equal(t, "looks right", updated.ReviewNote)
	assert.Equal(t, model.SourceHuman, updated.SourceType)
	assert.Equal(t, "SBUX", updated.Ticker)
	require.NotNil(t, updated.ReviewedAt)
	assert.True(t, updated.ReviewedAt.After(before))
}

func TestApproveWithTickerOverride(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, false)

	updated, err := moderator.Approve(ctx, mapping.ID, "ops@example.com", "wrong chain", "MCD")
	require.NoError(t, err)
	assert.Equal(t, "MCD", updated.Ticker)
	assert.Equal(t, "McDonald's Corporation", updated.CanonicalCompanyName,
		"an overridden ticker re-resolves the canonical name")
}

func TestApproveFromPending(t *testing.T) {
	moderator, store := newTestModerator(t)

	mapping := seedMapping(t, store, model.StatusPending, false)

	updated, err := moderator.Approve(context.Background(), mapping.ID, "ops@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, updated.Status)
}

func TestReject(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, false)

	updated, err := moderator.Reject(ctx, mapping.ID, "ops@example.com", "not a public company")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, updated.Status)
	assert.Equal(t, "not a public company", updated.ReviewNote)
	assert.Equal(t, model.SourceHuman, updated.SourceType)
	require.NotNil(t, updated.ReviewedAt)
}

func TestModerationOnTerminalStates(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	for _, status := range []model.MappingStatus{model.StatusApproved, model.StatusRejected, model.StatusAutoApplied} {
		t.Run(string(status), func(t *testing.T) {
			mapping := seedMapping(t, store, status, false)

			_, err := moderator.Approve(ctx, mapping.ID, "ops@example.com", "", "")
			assert.ErrorIs(t, err, common.ErrInvalidTransition)

			_, err = moderator.Reject(ctx, mapping.ID, "ops@example.com", "changed my mind")
			assert.ErrorIs(t, err, common.ErrInvalidTransition)

			// The record is untouched by the failed attempts.
			got, getErr := store.GetMapping(ctx, mapping.ID)
			require.NoError(t, getErr)
			assert.Equal(t, status, got.Status)
		})
	}
}

func TestModerationUnknownMapping(t *testing.T) {
	moderator, _ := newTestModerator(t)

	_, err := moderator.Approve(context.Background(), "missing", "ops@example.com", "", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestModerationRequiresActor(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, false)

	_, err := moderator.Approve(ctx, mapping.ID, "", "", "")
	assert.Error(t, err)
	_, err = moderator.Reject(ctx, mapping.ID, "", "reason")
	assert.Error(t, err)
}

func TestApproveAttachesExchangeFeedback(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, true)

	older := &model.ClassificationExchange{
		ID:           uuid.New().String(),
		MappingID:    mapping.ID,
		MerchantName: mapping.MerchantName,
		ParsedTicker: "DNUT",
		ParsedStatus: model.AssistReviewRequired,
		CreatedAt:    time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, store.RecordExchange(ctx, older))
	latest := &model.ClassificationExchange{
		ID:           uuid.New().String(),
		MappingID:    mapping.ID,
		MerchantName: mapping.MerchantName,
		ParsedTicker: "SBUX",
		ParsedStatus: model.AssistReviewRequired,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.RecordExchange(ctx, latest))

	_, err := moderator.Approve(ctx, mapping.ID, "ops@example.com", "confirmed", "")
	require.NoError(t, err)

	got, err := store.GetExchange(ctx, latest.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Feedback, "feedback lands on the most recent exchange")
	assert.True(t, got.Feedback.WasCorrect)
	assert.Equal(t, "SBUX", got.Feedback.CorrectedTicker)

	untouched, err := store.GetExchange(ctx, older.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.Feedback)
}

func TestRejectAttachesNegativeFeedback(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, true)
	exchange := &model.ClassificationExchange{
		ID:           uuid.New().String(),
		MappingID:    mapping.ID,
		MerchantName: mapping.MerchantName,
		ParsedTicker: "SBUX",
		ParsedStatus: model.AssistApproved,
	}
	require.NoError(t, store.RecordExchange(ctx, exchange))

	_, err := moderator.Reject(ctx, mapping.ID, "ops@example.com", "local franchise, not SBUX")
	require.NoError(t, err)

	got, err := store.GetExchange(ctx, exchange.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Feedback)
	assert.False(t, got.Feedback.WasCorrect)
	assert.Equal(t, "local franchise, not SBUX", got.Feedback.Note)
}

func TestConcurrentModerationExactlyOneWins(t *testing.T) {
	moderator, store := newTestModerator(t)
	ctx := context.Background()

	mapping := seedMapping(t, store, model.StatusNeedsReview, false)

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = moderator.Approve(ctx, mapping.ID, "alice@example.com", "", "")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = moderator.Reject(ctx, mapping.ID, "bob@example.com", "duplicate")
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, common.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, winners)

	got, err := store.GetMapping(ctx, mapping.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.IsTerminal())
}
