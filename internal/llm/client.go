// Package llm implements the AI assist client: a second opinion on merchant
// classifications that the rule engine could not settle. Providers speak
// JSON over HTTP; every invocation is recorded to the learning corpus.
package llm

import (
	"context"
)

// Client defines the interface for inference providers.
type Client interface {
	// Complete sends a prompt and returns the raw text content of the reply.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// ModelVersion identifies the provider model for audit rows.
	ModelVersion() string
}
