package model

// MatchType describes how a rule's pattern is compared against a merchant name.
type MatchType string

// Match type constants, strongest first. Exact beats prefix beats substring
// beats fuzzy regardless of numeric priority.
const (
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchSubstring MatchType = "substring"
	MatchFuzzy     MatchType = "fuzzy"
)

// Tier orders match types by strength for cross-type tie breaking.
func (m MatchType) Tier() int {
	switch m {
	case MatchExact:
		return 0
	case MatchPrefix:
		return 1
	case MatchSubstring:
		return 2
	case MatchFuzzy:
		return 3
	}
	return 4
}

// Rule maps a merchant pattern to a ticker and category. Rules are immutable
// once loaded into an engine; Priority breaks ties within a match tier
// (lower value wins), and registration order breaks equal priorities.
type Rule struct {
	ID             int64
	Pattern        string
	MatchType      MatchType
	Ticker         string
	CanonicalName  string
	Category       string
	BaseConfidence float64
	Priority       int
}
