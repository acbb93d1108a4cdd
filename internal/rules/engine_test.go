package rules

import (
	"testing"

	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() []model.Rule {
	return []model.Rule{
		{
			ID:             1,
			Pattern:        "STARBUCKS",
			MatchType:      model.MatchPrefix,
			Ticker:         "SBUX",
			CanonicalName:  "Starbucks Corporation",
			Category:       "Coffee & Dining",
			BaseConfidence: 95,
			Priority:       10,
		},
		{
			ID:             2,
			Pattern:        "NETFLIX.COM",
			MatchType:      model.MatchExact,
			Ticker:         "NFLX",
			CanonicalName:  "Netflix Inc",
			Category:       "Entertainment",
			BaseConfidence: 90,
			Priority:       10,
		},
		{
			ID:             3,
			Pattern:        "AMAZON",
			MatchType:      model.MatchSubstring,
			Ticker:         "AMZN",
			CanonicalName:  "Amazon.com Inc",
			Category:       "Shopping",
			BaseConfidence: 88,
			Priority:       10,
		},
	}
}

func TestEngine_Classify(t *testing.T) {
	engine := NewEngine(testRules())

	tests := []struct {
		name           string
		merchant       string
		wantTicker     string
		wantMethod     model.ClassificationMethod
		wantConfidence float64
		wantNil        bool
	}{
		{
			name:           "exact match hits the hash index",
			merchant:       "NETFLIX.COM",
			wantTicker:     "NFLX",
			wantMethod:     model.MethodExact,
			wantConfidence: ExactMatchConfidence,
		},
		{
			name:           "exact match is case and whitespace insensitive",
			merchant:       "  netflix.com  ",
			wantTicker:     "NFLX",
			wantMethod:     model.MethodExact,
			wantConfidence: ExactMatchConfidence,
		},
		{
			name:           "prefix match on store-numbered merchant",
			merchant:       "STARBUCKS #4521",
			wantTicker:     "SBUX",
			wantMethod:     model.MethodPattern,
			wantConfidence: 95,
		},
		{
			name:           "substring match in the middle of the name",
			merchant:       "POS DEBIT AMAZON MKTP US",
			wantTicker:     "AMZN",
			wantMethod:     model.MethodPattern,
			wantConfidence: 88,
		},
		{
			name:       "fuzzy match on near-canonical name",
			merchant:   "STARBUCKS CORP",
			wantTicker: "SBUX",
			wantMethod: model.MethodPattern, // prefix still wins over fuzzy
		},
		{
			name:     "no match below fuzzy floor",
			merchant: "Unlisted Local Cafe",
			wantNil:  true,
		},
		{
			name:     "empty merchant name",
			merchant: "",
			wantNil:  true,
		},
		{
			name:     "whitespace-only merchant name",
			merchant: "   \t  ",
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := engine.Classify(tt.merchant)
			if tt.wantNil {
				assert.Nil(t, candidate)
				return
			}
			require.NotNil(t, candidate)
			assert.Equal(t, tt.wantTicker, candidate.Ticker)
			if tt.wantMethod != "" {
				assert.Equal(t, tt.wantMethod, candidate.Method)
			}
			if tt.wantConfidence != 0 {
				assert.InDelta(t, tt.wantConfidence, candidate.Confidence, 0.001)
			}
		})
	}
}

func TestEngine_ClassifyIdempotent(t *testing.T) {
	engine := NewEngine(testRules())

	first := engine.Classify("STARBUCKS #4521")
	second := engine.Classify("STARBUCKS #4521")

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestEngine_PrefixBeatsSubstringRegardlessOfPriority(t *testing.T) {
	engine := NewEngine([]model.Rule{
		{
			ID:             1,
			Pattern:        "COSTCO",
			MatchType:      model.MatchSubstring,
			Ticker:         "WRONG",
			Category:       "Shopping",
			BaseConfidence: 80,
			Priority:       1, // numerically better, weaker tier
		},
		{
			ID:             2,
			Pattern:        "COSTCO",
			MatchType:      model.MatchPrefix,
			Ticker:         "COST",
			Category:       "Groceries",
			BaseConfidence: 90,
			Priority:       50,
		},
	})

	candidate := engine.Classify("COSTCO WHSE #0423")
	require.NotNil(t, candidate)
	assert.Equal(t, "COST", candidate.Ticker)
	assert.EqualValues(t, 2, candidate.MatchedRuleID)
}

func TestEngine_EqualPriorityFirstRegisteredWins(t *testing.T) {
	engine := NewEngine([]model.Rule{
		{ID: 1, Pattern: "DELTA", MatchType: model.MatchPrefix, Ticker: "DAL", Category: "Travel", BaseConfidence: 85, Priority: 10},
		{ID: 2, Pattern: "DELTA", MatchType: model.MatchPrefix, Ticker: "WRONG", Category: "Travel", BaseConfidence: 85, Priority: 10},
	})

	for i := 0; i < 5; i++ {
		candidate := engine.Classify("DELTA AIR LINES")
		require.NotNil(t, candidate)
		assert.Equal(t, "DAL", candidate.Ticker)
	}
}

func TestEngine_FuzzyMatch(t *testing.T) {
	engine := NewEngine([]model.Rule{
		{
			ID:             1,
			Pattern:        "CHIPOTLE",
			MatchType:      model.MatchExact,
			Ticker:         "CMG",
			CanonicalName:  "Chipotle Mexican Grill",
			Category:       "Fast Food",
			BaseConfidence: 90,
			Priority:       10,
		},
	})

	// Misspelled, no exact or pattern hit, but close enough to the
	// canonical dictionary entry.
	candidate := engine.Classify("CHIPOTLE MEXICAN GRIL")
	require.NotNil(t, candidate)
	assert.Equal(t, "CMG", candidate.Ticker)
	assert.Equal(t, model.MethodFuzzy, candidate.Method)
	assert.Less(t, candidate.Confidence, ExactMatchConfidence)
	assert.GreaterOrEqual(t, candidate.Confidence, DefaultFuzzyFloor*maxFuzzyConfidence)
}

func TestEngine_FuzzyFloorOption(t *testing.T) {
	strict := NewEngine(testRules(), WithFuzzyFloor(0.99))
	assert.Nil(t, strict.Classify("STARBUCS"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Starbucks  #4521 ", "STARBUCKS #4521"},
		{"amazon\t\tmktp", "AMAZON MKTP"},
		{"", ""},
		{"   ", ""},
		{"ALREADY NORMAL", "ALREADY NORMAL"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}
