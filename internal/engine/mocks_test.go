package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/roundlot/ticker-scout/internal/model"
)

// mockClassifier returns a canned candidate for every merchant.
type mockClassifier struct {
	candidate *model.ClassificationCandidate
}

func (m *mockClassifier) Classify(_ string) *model.ClassificationCandidate {
	if m.candidate == nil {
		return nil
	}
	// Callers get a fresh copy; candidates are never shared.
	c := *m.candidate
	return &c
}

// mockAssistant returns a canned result and records every invocation.
type mockAssistant struct {
	result model.AssistResult
	calls  []string
	mu     sync.Mutex
}

func (m *mockAssistant) Assist(_ context.Context, mappingID, _, _ string) model.AssistResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mappingID)
	return m.result
}

func (m *mockAssistant) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
