package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
)

// reviewConfidenceFloor bounds false auto-approvals: whatever status the
// service claims, a confidence under this floor is downgraded to
// review_required.
const reviewConfidenceFloor = 0.7

// assistJSON is the structured format the service is instructed to return.
type assistJSON struct {
	Ticker     string  `json:"ticker"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
	Reasoning  string  `json:"reasoning"`
}

// parseAssistResponse validates the service reply into an AssistResult.
// The response is modeled as a tagged variant; unknown statuses collapse to
// uncertain and out-of-range confidence is rejected outright.
func parseAssistResponse(content string) (model.AssistResult, error) {
	content = cleanMarkdownWrapper(content)

	var parsed assistJSON
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return model.AssistResult{}, fmt.Errorf("%w: %v", common.ErrAssistMalformed, err)
	}

	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return model.AssistResult{}, fmt.Errorf("%w: confidence %.3f out of range [0,1]", common.ErrAssistMalformed, parsed.Confidence)
	}

	status := parseAssistStatus(parsed.Status)
	// An empty ticker only makes sense when the service is declining.
	if parsed.Ticker == "" && status != model.AssistRejected && status != model.AssistUncertain {
		return model.AssistResult{}, fmt.Errorf("%w: no ticker in response", common.ErrAssistMalformed)
	}
	if parsed.Confidence < reviewConfidenceFloor {
		status = model.AssistReviewRequired
	}

	return model.AssistResult{
		Ticker:     strings.ToUpper(strings.TrimSpace(parsed.Ticker)),
		Confidence: parsed.Confidence,
		Status:     status,
		Reasoning:  parsed.Reasoning,
	}, nil
}

func parseAssistStatus(raw string) model.AssistStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return model.AssistApproved
	case "rejected":
		return model.AssistRejected
	case "review_required", "review":
		return model.AssistReviewRequired
	default:
		return model.AssistUncertain
	}
}

// cleanMarkdownWrapper strips a ```json ... ``` fence that models sometimes
// wrap around their output despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```json")
			content = strings.TrimPrefix(content, "```")
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
