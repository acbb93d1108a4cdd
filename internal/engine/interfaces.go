package engine

import (
	"context"

	"github.com/roundlot/ticker-scout/internal/model"
)

// Classifier defines the contract for rule-based merchant classification.
type Classifier interface {
	Classify(merchantName string) *model.ClassificationCandidate
}

// Assistant defines the contract for the AI second-opinion client. The
// implementation absorbs all transport failures; the result is always usable.
type Assistant interface {
	Assist(ctx context.Context, mappingID, merchantName, categoryHint string) model.AssistResult
}
