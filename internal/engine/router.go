package engine

import "github.com/roundlot/ticker-scout/internal/model"

// Thresholds configure the confidence router.
type Thresholds struct {
	// AutoThreshold is the confidence at or above which a candidate is
	// applied without review.
	AutoThreshold float64
	// ReviewFloor is the confidence below which the signal is too weak to
	// contextualize and AI assist is skipped entirely.
	ReviewFloor float64
}

// DefaultThresholds returns the default routing thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoThreshold: 90,
		ReviewFloor:   70,
	}
}

// Decision is the routing outcome for one candidate.
type Decision struct {
	Status  model.MappingStatus
	NeedsAI bool
}

// Router applies confidence thresholds to classification candidates. It is
// the single place thresholds are enforced, and it is idempotent: the same
// candidate always produces the same decision.
type Router struct {
	thresholds Thresholds
}

// NewRouter creates a router with the given thresholds, taken as-is.
// A ReviewFloor of 0 is meaningful: every non-auto candidate gets an AI
// second opinion. Callers wanting defaults use DefaultThresholds.
func NewRouter(thresholds Thresholds) *Router {
	return &Router{thresholds: thresholds}
}

// Route decides what happens to a candidate. A nil candidate means the rule
// engine had nothing to anchor a decision on: the mapping goes to review
// with an AI second opinion requested. Confidence in the band between the
// review floor and the auto threshold also gets a second opinion before
// surfacing to a human; below the floor, assist is skipped because the
// signal is too weak to contextualize.
func (r *Router) Route(candidate *model.ClassificationCandidate) Decision {
	if candidate == nil {
		return Decision{Status: model.StatusNeedsReview, NeedsAI: true}
	}

	switch {
	case candidate.Confidence >= r.thresholds.AutoThreshold:
		return Decision{Status: model.StatusAutoApplied, NeedsAI: false}
	case candidate.Confidence >= r.thresholds.ReviewFloor:
		return Decision{Status: model.StatusNeedsReview, NeedsAI: true}
	default:
		return Decision{Status: model.StatusNeedsReview, NeedsAI: false}
	}
}
