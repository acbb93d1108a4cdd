package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/service"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testMapping(id, txnID, userID string, status model.MappingStatus) *model.MappingRecord {
	return &model.MappingRecord{
		ID:                   id,
		TransactionID:        txnID,
		UserID:               userID,
		MerchantName:         "STARBUCKS STORE #1234",
		CanonicalCompanyName: "Starbucks Corporation",
		Ticker:               "SBUX",
		Category:             "Coffee Shops",
		Confidence:           95,
		Status:               status,
		SourceType:           model.SourceRule,
		RoundUpCents:         37,
	}
}

func TestCreateAndGetMapping(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	mapping := testMapping("map-1", "txn-1", "user-1", model.StatusPending)
	require.NoError(t, store.CreateMapping(ctx, mapping))

	got, err := store.GetMapping(ctx, "map-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", got.TransactionID)
	assert.Equal(t, "SBUX", got.Ticker)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, model.SourceRule, got.SourceType)
	assert.Equal(t, int64(37), got.RoundUpCents)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.ReviewedAt)
}

func TestGetMappingNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetMapping(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateMappingDuplicateActive(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMapping(ctx, testMapping("map-1", "txn-1", "user-1", model.StatusAutoApplied)))

	err := store.CreateMapping(ctx, testMapping("map-2", "txn-1", "user-1", model.StatusPending))
	assert.ErrorIs(t, err, common.ErrDuplicateMapping)

	// Same transaction for a different user is fine.
	require.NoError(t, store.CreateMapping(ctx, testMapping("map-3", "txn-1", "user-2", model.StatusPending)))
}

func TestCreateMappingAfterRejection(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// A rejected mapping does not count as active, so the pair may be resubmitted.
	require.NoError(t, store.CreateMapping(ctx, testMapping("map-1", "txn-1", "user-1", model.StatusRejected)))
	require.NoError(t, store.CreateMapping(ctx, testMapping("map-2", "txn-1", "user-1", model.StatusPending)))

	got, err := store.GetMappingByTransaction(ctx, "txn-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "map-2", got.ID, "active record should win over the rejected one")
}

func TestCreateMappingValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		mutate func(*model.MappingRecord)
		name   string
	}{
		{name: "missing ID", mutate: func(m *model.MappingRecord) { m.ID = "" }},
		{name: "missing transaction ID", mutate: func(m *model.MappingRecord) { m.TransactionID = "" }},
		{name: "missing user ID", mutate: func(m *model.MappingRecord) { m.UserID = "" }},
		{name: "missing merchant name", mutate: func(m *model.MappingRecord) { m.MerchantName = "" }},
		{name: "bogus status", mutate: func(m *model.MappingRecord) { m.Status = "bogus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping := testMapping("map-v", "txn-v", "user-v", model.StatusPending)
			tt.mutate(mapping)
			assert.Error(t, store.CreateMapping(ctx, mapping))
		})
	}
}

func TestUpdateMappingStatusCAS(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMapping(ctx, testMapping("map-1", "txn-1", "user-1", model.StatusPending)))

	source := model.SourceHuman
	reviewer := "ops@example.com"
	now := time.Now().UTC()
	updated, err := store.UpdateMappingStatus(ctx, "map-1",
		model.ReviewableStatuses(),
		service.MappingUpdate{
			Status:     model.StatusApproved,
			SourceType: &source,
			ReviewedBy: &reviewer,
			ReviewedAt: &now,
		})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, updated.Status)
	assert.Equal(t, model.SourceHuman, updated.SourceType)
	assert.Equal(t, reviewer, updated.ReviewedBy)
	require.NotNil(t, updated.ReviewedAt)

	// The record is now terminal; a second transition must fail.
	_, err = store.UpdateMappingStatus(ctx, "map-1",
		model.ReviewableStatuses(),
		service.MappingUpdate{Status: model.StatusRejected})
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	got, err := store.GetMapping(ctx, "map-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status, "losing transition must not alter the record")
}

func TestUpdateMappingStatusNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpdateMappingStatus(context.Background(), "missing",
		[]model.MappingStatus{model.StatusPending},
		service.MappingUpdate{Status: model.StatusApproved})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateMappingStatusPartialFields(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMapping(ctx, testMapping("map-1", "txn-1", "user-1", model.StatusNeedsReview)))

	ticker := "AMZN"
	company := "Amazon.com, Inc."
	updated, err := store.UpdateMappingStatus(ctx, "map-1",
		[]model.MappingStatus{model.StatusNeedsReview},
		service.MappingUpdate{
			Status:               model.StatusApproved,
			Ticker:               &ticker,
			CanonicalCompanyName: &company,
		})
	require.NoError(t, err)
	assert.Equal(t, "AMZN", updated.Ticker)
	assert.Equal(t, company, updated.CanonicalCompanyName)
	// Untouched fields keep their stored values.
	assert.Equal(t, "Coffee Shops", updated.Category)
	assert.InDelta(t, 95, updated.Confidence, 0.001)
}

func TestUpdateMappingStatusConcurrent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMapping(ctx, testMapping("map-1", "txn-1", "user-1", model.StatusNeedsReview)))

	const contenders = 8
	var wg sync.WaitGroup
	results := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			status := model.StatusApproved
			if n%2 == 1 {
				status = model.StatusRejected
			}
			_, results[n] = store.UpdateMappingStatus(ctx, "map-1",
				model.ReviewableStatuses(),
				service.MappingUpdate{Status: status})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, common.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent transition should win")
}

func TestGetQueueFilterAndPagination(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 6; i++ {
		status := model.StatusNeedsReview
		if i >= 4 {
			status = model.StatusAutoApplied
		}
		mapping := testMapping(
			fmt.Sprintf("map-%d", i),
			fmt.Sprintf("txn-%d", i),
			"user-1",
			status)
		mapping.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateMapping(ctx, mapping))
	}

	queue, err := store.GetQueue(ctx, service.QueueFilter{Status: model.StatusNeedsReview})
	require.NoError(t, err)
	require.Len(t, queue, 4)
	assert.Equal(t, "map-3", queue[0].ID, "queue should be newest first")

	page, err := store.GetQueue(ctx, service.QueueFilter{
		Status: model.StatusNeedsReview,
		Limit:  2,
		Offset: 2,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "map-1", page[0].ID)
	assert.Equal(t, "map-0", page[1].ID)

	empty, err := store.GetQueue(ctx, service.QueueFilter{Status: model.StatusRejected})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetQueueInvalidStatus(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetQueue(context.Background(), service.QueueFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetQueueFilterByUser(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMapping(ctx, testMapping("map-1", "txn-1", "user-a", model.StatusNeedsReview)))
	require.NoError(t, store.CreateMapping(ctx, testMapping("map-2", "txn-2", "user-b", model.StatusNeedsReview)))

	queue, err := store.GetQueue(ctx, service.QueueFilter{UserID: "user-a"})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "map-1", queue[0].ID)
}

func TestNilContextRejected(t *testing.T) {
	store := newTestStorage(t)

	//nolint:staticcheck // passing nil context deliberately
	err := store.CreateMapping(nil, testMapping("map-1", "txn-1", "user-1", model.StatusPending))
	assert.ErrorIs(t, err, ErrNilContext)

	var errIs error
	//nolint:staticcheck // passing nil context deliberately
	_, errIs = store.GetMapping(nil, "map-1")
	assert.ErrorIs(t, errIs, ErrNilContext)
}

