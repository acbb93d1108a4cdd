package model

// ClassificationMethod records which matching strategy produced a candidate.
type ClassificationMethod string

// Classification method constants.
const (
	MethodExact     ClassificationMethod = "exact"
	MethodPattern   ClassificationMethod = "pattern"
	MethodFuzzy     ClassificationMethod = "fuzzy"
	MethodAIAssist  ClassificationMethod = "ai_assist"
	MethodModerator ClassificationMethod = "moderator"
)

// ClassificationCandidate is the ephemeral output of a single classification
// attempt. It is produced fresh on every call and never persisted or mutated.
type ClassificationCandidate struct {
	Ticker        string
	Category      string
	Method        ClassificationMethod
	Evidence      string
	MatchedRuleID int64
	Confidence    float64 // 0-100
}
