package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundlot/ticker-scout/internal/model"
)

// mockClient is a scripted provider for assistant tests.
type mockClient struct {
	err      error
	response string
	calls    int
	mu       sync.Mutex
}

func (m *mockClient) Complete(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockClient) ModelVersion() string { return "mock-model-1" }

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// memoryCorpus is an in-memory Corpus capturing recorded exchanges.
type memoryCorpus struct {
	exchanges []model.ClassificationExchange
	similar   []model.ClassificationExchange
	mu        sync.Mutex
}

func (c *memoryCorpus) RecordExchange(_ context.Context, exchange *model.ClassificationExchange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, *exchange)
	return nil
}

func (c *memoryCorpus) GetSimilarExchanges(_ context.Context, _ string, _ int) ([]model.ClassificationExchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.similar, nil
}

func (c *memoryCorpus) recorded() []model.ClassificationExchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ClassificationExchange, len(c.exchanges))
	copy(out, c.exchanges)
	return out
}

func newTestAssistant(t *testing.T, client Client, corpus Corpus) *Assistant {
	t.Helper()
	cfg := Config{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		CacheTTL:   time.Minute,
		RateLimit:  6000,
		Timeout:    time.Second,
		FewShotK:   5,
	}
	assistant := newAssistantWithClient(cfg, client, corpus,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(assistant.Close)
	return assistant
}

func TestAssistSuccess(t *testing.T) {
	client := &mockClient{
		response: `{"ticker":"SBUX","confidence":0.95,"status":"approved","reasoning":"coffee chain"}`,
	}
	corpus := &memoryCorpus{}
	assistant := newTestAssistant(t, client, corpus)

	result := assistant.Assist(context.Background(), "map-1", "STARBUCKS STORE #1234", "Coffee")

	assert.Equal(t, model.AssistApproved, result.Status)
	assert.Equal(t, "SBUX", result.Ticker)
	assert.InDelta(t, 0.95, result.Confidence, 0.001)
	assert.Equal(t, "mock-model-1", result.ModelVersion)

	recorded := corpus.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "map-1", recorded[0].MappingID)
	assert.Equal(t, "SBUX", recorded[0].ParsedTicker)
	assert.Equal(t, model.AssistApproved, recorded[0].ParsedStatus)
	assert.False(t, recorded[0].IsError)
	assert.Contains(t, recorded[0].RequestPayload, "STARBUCKS STORE #1234")
	assert.NotEmpty(t, recorded[0].RawResponse)
}

func TestAssistTransportFailure(t *testing.T) {
	client := &mockClient{err: errors.New("connection refused")}
	corpus := &memoryCorpus{}
	assistant := newTestAssistant(t, client, corpus)

	result := assistant.Assist(context.Background(), "map-1", "MYSTERY VENDOR", "")

	assert.Equal(t, model.AssistError, result.Status)
	assert.Zero(t, result.Confidence)
	assert.Contains(t, result.Reasoning, "assist unavailable")

	// The failed invocation still lands in the corpus.
	recorded := corpus.recorded()
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].IsError)
	assert.Equal(t, model.AssistError, recorded[0].ParsedStatus)
}

func TestAssistMalformedResponse(t *testing.T) {
	client := &mockClient{response: "I believe this is Starbucks."}
	corpus := &memoryCorpus{}
	assistant := newTestAssistant(t, client, corpus)

	result := assistant.Assist(context.Background(), "map-1", "STARBUCKS", "")

	assert.Equal(t, model.AssistError, result.Status)
	assert.Contains(t, result.Reasoning, "unparseable")

	recorded := corpus.recorded()
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].IsError)
	assert.Equal(t, "I believe this is Starbucks.", recorded[0].RawResponse)
}

func TestAssistCachesSuccesses(t *testing.T) {
	client := &mockClient{
		response: `{"ticker":"SBUX","confidence":0.95,"status":"approved","reasoning":""}`,
	}
	corpus := &memoryCorpus{}
	assistant := newTestAssistant(t, client, corpus)
	ctx := context.Background()

	first := assistant.Assist(ctx, "map-1", "Starbucks  Store", "")
	// Differently-cased and spaced names normalize to the same cache key.
	second := assistant.Assist(ctx, "map-2", "STARBUCKS STORE", "")

	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, first.Ticker, second.Ticker)

	// A cache hit skips the provider but not the corpus: each served
	// mapping gets its own exchange row for audit and feedback.
	recorded := corpus.recorded()
	require.Len(t, recorded, 2)
	assert.Equal(t, "map-1", recorded[0].MappingID)
	assert.Equal(t, "map-2", recorded[1].MappingID)
	assert.Equal(t, recorded[0].ParsedTicker, recorded[1].ParsedTicker)
	assert.Equal(t, recorded[0].RawResponse, recorded[1].RawResponse)
	assert.NotEqual(t, recorded[0].ID, recorded[1].ID)
	assert.False(t, recorded[1].IsError)
}

func TestAssistDoesNotCacheFailures(t *testing.T) {
	client := &mockClient{err: errors.New("boom")}
	corpus := &memoryCorpus{}
	assistant := newTestAssistant(t, client, corpus)
	ctx := context.Background()

	_ = assistant.Assist(ctx, "map-1", "STARBUCKS", "")
	callsAfterFirst := client.callCount()
	_ = assistant.Assist(ctx, "map-2", "STARBUCKS", "")

	assert.Greater(t, client.callCount(), callsAfterFirst,
		"a failed result must not be served from cache")
	assert.Len(t, corpus.recorded(), 2)
}

func TestAssistFewShotContext(t *testing.T) {
	client := &mockClient{
		response: `{"ticker":"AMZN","confidence":0.9,"status":"approved","reasoning":""}`,
	}
	corpus := &memoryCorpus{
		similar: []model.ClassificationExchange{
			{
				MerchantName:     "AMAZON MKTP US",
				ParsedTicker:     "AMZN",
				ParsedConfidence: 0.93,
				Feedback:         &model.ExchangeFeedback{WasCorrect: true},
			},
			{
				MerchantName:     "AMAZON TIPS",
				ParsedTicker:     "WMT",
				ParsedConfidence: 0.6,
				Feedback:         &model.ExchangeFeedback{WasCorrect: false, CorrectedTicker: "AMZN"},
			},
			{
				MerchantName: "AMAZON WEB SERVICES",
				ParsedStatus: model.AssistError,
				IsError:      true,
			},
		},
	}
	assistant := newTestAssistant(t, client, corpus)

	_ = assistant.Assist(context.Background(), "map-1", "AMAZON PRIME", "Shopping")

	recorded := corpus.recorded()
	require.Len(t, recorded, 1)
	prompt := recorded[0].RequestPayload
	assert.Contains(t, prompt, "AMAZON MKTP US")
	assert.Contains(t, prompt, "(confirmed correct)")
	assert.Contains(t, prompt, "(corrected to AMZN)")
	assert.NotContains(t, prompt, "AMAZON WEB SERVICES", "failed exchanges are not examples")
}

func TestBuildAssistPromptWithoutExamples(t *testing.T) {
	prompt := buildAssistPrompt("JOES DELI", "", nil)

	assert.Contains(t, prompt, "JOES DELI")
	assert.NotContains(t, prompt, "Prior classifications")
	assert.Contains(t, prompt, `"status"`)
}
