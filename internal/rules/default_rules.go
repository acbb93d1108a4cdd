package rules

import "github.com/roundlot/ticker-scout/internal/model"

// DefaultRules returns the seed rule set for common US merchants. Storage
// migrations load these on first run; user-defined rules are appended after.
func DefaultRules() []model.Rule {
	return []model.Rule{
		{
			Pattern:        "STARBUCKS",
			MatchType:      model.MatchPrefix,
			Ticker:         "SBUX",
			CanonicalName:  "Starbucks Corporation",
			Category:       "Coffee & Dining",
			BaseConfidence: 95,
			Priority:       10,
		},
		{
			Pattern:        "AMAZON",
			MatchType:      model.MatchSubstring,
			Ticker:         "AMZN",
			CanonicalName:  "Amazon.com Inc",
			Category:       "Shopping",
			BaseConfidence: 92,
			Priority:       10,
		},
		{
			Pattern:        "AMZN MKTP",
			MatchType:      model.MatchPrefix,
			Ticker:         "AMZN",
			CanonicalName:  "Amazon.com Inc",
			Category:       "Shopping",
			BaseConfidence: 95,
			Priority:       5,
		},
		{
			Pattern:        "WAL-MART",
			MatchType:      model.MatchPrefix,
			Ticker:         "WMT",
			CanonicalName:  "Walmart Inc",
			Category:       "Groceries",
			BaseConfidence: 93,
			Priority:       10,
		},
		{
			Pattern:        "WALMART",
			MatchType:      model.MatchPrefix,
			Ticker:         "WMT",
			CanonicalName:  "Walmart Inc",
			Category:       "Groceries",
			BaseConfidence: 93,
			Priority:       10,
		},
		{
			Pattern:        "TARGET",
			MatchType:      model.MatchPrefix,
			Ticker:         "TGT",
			CanonicalName:  "Target Corporation",
			Category:       "Shopping",
			BaseConfidence: 90,
			Priority:       15,
		},
		{
			Pattern:        "MCDONALD",
			MatchType:      model.MatchSubstring,
			Ticker:         "MCD",
			CanonicalName:  "McDonald's Corporation",
			Category:       "Fast Food",
			BaseConfidence: 94,
			Priority:       10,
		},
		{
			Pattern:        "NETFLIX",
			MatchType:      model.MatchSubstring,
			Ticker:         "NFLX",
			CanonicalName:  "Netflix Inc",
			Category:       "Entertainment",
			BaseConfidence: 96,
			Priority:       5,
		},
		{
			Pattern:        "SPOTIFY",
			MatchType:      model.MatchSubstring,
			Ticker:         "SPOT",
			CanonicalName:  "Spotify Technology SA",
			Category:       "Entertainment",
			BaseConfidence: 96,
			Priority:       5,
		},
		{
			Pattern:        "APPLE.COM",
			MatchType:      model.MatchSubstring,
			Ticker:         "AAPL",
			CanonicalName:  "Apple Inc",
			Category:       "Technology",
			BaseConfidence: 92,
			Priority:       10,
		},
		{
			Pattern:        "UBER",
			MatchType:      model.MatchPrefix,
			Ticker:         "UBER",
			CanonicalName:  "Uber Technologies Inc",
			Category:       "Transportation",
			BaseConfidence: 88,
			Priority:       20,
		},
		{
			Pattern:        "UBER EATS",
			MatchType:      model.MatchPrefix,
			Ticker:         "UBER",
			CanonicalName:  "Uber Technologies Inc",
			Category:       "Food Delivery",
			BaseConfidence: 92,
			Priority:       5,
		},
		{
			Pattern:        "CHIPOTLE",
			MatchType:      model.MatchPrefix,
			Ticker:         "CMG",
			CanonicalName:  "Chipotle Mexican Grill Inc",
			Category:       "Fast Food",
			BaseConfidence: 94,
			Priority:       10,
		},
		{
			Pattern:        "COSTCO",
			MatchType:      model.MatchPrefix,
			Ticker:         "COST",
			CanonicalName:  "Costco Wholesale Corporation",
			Category:       "Groceries",
			BaseConfidence: 94,
			Priority:       10,
		},
		{
			Pattern:        "SHELL OIL",
			MatchType:      model.MatchPrefix,
			Ticker:         "SHEL",
			CanonicalName:  "Shell plc",
			Category:       "Gas & Fuel",
			BaseConfidence: 85,
			Priority:       20,
		},
		{
			Pattern:        "HOME DEPOT",
			MatchType:      model.MatchSubstring,
			Ticker:         "HD",
			CanonicalName:  "Home Depot Inc",
			Category:       "Home Improvement",
			BaseConfidence: 93,
			Priority:       10,
		},
		{
			Pattern:        "DISNEY",
			MatchType:      model.MatchSubstring,
			Ticker:         "DIS",
			CanonicalName:  "Walt Disney Company",
			Category:       "Entertainment",
			BaseConfidence: 88,
			Priority:       20,
		},
	}
}
