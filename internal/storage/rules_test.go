package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/rules"
)

func TestMigrationsSeedDefaultRules(t *testing.T) {
	store := newTestStorage(t)

	ruleSet, err := store.GetRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, ruleSet, len(rules.DefaultRules()))

	// Seeded rows carry assigned IDs in registration order.
	for i, rule := range ruleSet {
		assert.Equal(t, int64(i+1), rule.ID)
		assert.NotEmpty(t, rule.Ticker)
	}
}

func TestSaveRuleAssignsID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rule := &model.Rule{
		Pattern:        "TRADER JOE",
		MatchType:      model.MatchPrefix,
		Ticker:         "PRIVATE",
		CanonicalName:  "Trader Joe's",
		Category:       "Groceries",
		BaseConfidence: 90,
		Priority:       20,
	}
	require.NoError(t, store.SaveRule(ctx, rule))
	assert.Positive(t, rule.ID)

	ruleSet, err := store.GetRules(ctx)
	require.NoError(t, err)
	last := ruleSet[len(ruleSet)-1]
	assert.Equal(t, rule.ID, last.ID)
	assert.Equal(t, "TRADER JOE", last.Pattern)
	assert.Equal(t, model.MatchPrefix, last.MatchType)
}

func TestSaveRuleValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		rule *model.Rule
		name string
	}{
		{name: "missing pattern", rule: &model.Rule{MatchType: model.MatchExact, Ticker: "SBUX", Category: "Coffee"}},
		{name: "missing ticker", rule: &model.Rule{Pattern: "STARBUCKS", MatchType: model.MatchExact, Category: "Coffee"}},
		{name: "missing category", rule: &model.Rule{Pattern: "STARBUCKS", MatchType: model.MatchExact, Ticker: "SBUX"}},
		{name: "bad match type", rule: &model.Rule{Pattern: "STARBUCKS", MatchType: "regex", Ticker: "SBUX", Category: "Coffee"}},
		{name: "confidence out of range", rule: &model.Rule{Pattern: "STARBUCKS", MatchType: model.MatchExact, Ticker: "SBUX", Category: "Coffee", BaseConfidence: 101}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.SaveRule(ctx, tt.rule), ErrInvalidRule)
		})
	}

	assert.ErrorIs(t, store.SaveRule(ctx, nil), ErrNilParameter)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// newTestStorage already migrated once; a second run is a no-op.
	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Seed rules are not duplicated by the second run.
	ruleSet, err := store.GetRules(ctx)
	require.NoError(t, err)
	assert.Len(t, ruleSet, len(rules.DefaultRules()))
}
