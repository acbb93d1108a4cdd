package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/rules"
	"github.com/roundlot/ticker-scout/internal/service"
)

const systemPrompt = "You are a financial analyst mapping merchant names to US stock tickers. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, " +
	"markdown formatting, or commentary before or after the JSON. Start your response directly with { and end with }."

// Corpus is the slice of the learning corpus the assistant needs: few-shot
// retrieval and append-only exchange recording.
type Corpus interface {
	RecordExchange(ctx context.Context, exchange *model.ClassificationExchange) error
	GetSimilarExchanges(ctx context.Context, merchantName string, k int) ([]model.ClassificationExchange, error)
}

// Config holds configuration for the assist client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Timeout     time.Duration
	FewShotK    int
	Temperature float64
	MaxTokens   int
}

// Assistant asks an external inference service for a second opinion on
// merchants the rule engine could not settle. It never returns an error to
// the pipeline: any transport or parse failure degrades to an AssistResult
// with Status error, and every invocation is written to the corpus first.
type Assistant struct {
	client      Client
	corpus      Corpus
	cache       *resultCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	timeout     time.Duration
	fewShotK    int
}

// NewAssistant creates an assist client for the configured provider.
func NewAssistant(cfg Config, corpus Corpus, logger *slog.Logger) (*Assistant, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported assist provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create assist client: %w", err)
	}

	return newAssistantWithClient(cfg, client, corpus, logger), nil
}

// newAssistantWithClient wires an Assistant around an existing Client.
// Split out so tests can inject a mock provider.
func newAssistantWithClient(cfg Config, client Client, corpus Corpus, logger *slog.Logger) *Assistant {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	fewShotK := cfg.FewShotK
	if fewShotK == 0 {
		fewShotK = 5
	}

	return &Assistant{
		client:      client,
		corpus:      corpus,
		cache:       newResultCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
		retryOpts:   retryOpts,
		timeout:     timeout,
		fewShotK:    fewShotK,
	}
}

// Close stops background goroutines.
func (a *Assistant) Close() {
	a.cache.Close()
	a.rateLimiter.Close()
}

// Assist requests a ticker suggestion for a merchant name. The result is
// always usable by the router; failures surface as Status error with the
// cause in Reasoning, exactly like a low-confidence review case.
func (a *Assistant) Assist(ctx context.Context, mappingID, merchantName, categoryHint string) model.AssistResult {
	cacheKey := rules.Normalize(merchantName)
	if cached, found := a.cache.get(cacheKey); found {
		a.logger.Debug("assist cache hit", "merchant", merchantName)
		// The served mapping still gets its own exchange row, replaying
		// the original request and response.
		a.recordExchange(ctx, mappingID, merchantName, categoryHint, cached.prompt, cached.rawResponse, cached.result)
		return cached.result
	}

	examples := a.fewShotExamples(ctx, merchantName)
	prompt := buildAssistPrompt(merchantName, categoryHint, examples)

	start := time.Now()
	content, err := a.invoke(ctx, prompt)
	latency := time.Since(start)

	var result model.AssistResult
	if err != nil {
		result = model.AssistResult{
			Status:     model.AssistError,
			Confidence: 0,
			Reasoning:  fmt.Sprintf("assist unavailable: %v", err),
		}
		a.logger.Warn("assist call failed",
			"merchant", merchantName,
			"latency", latency,
			"error", err)
	} else {
		result, err = parseAssistResponse(content)
		if err != nil {
			result = model.AssistResult{
				Status:     model.AssistError,
				Confidence: 0,
				Reasoning:  fmt.Sprintf("unparseable assist response: %v", err),
			}
			a.logger.Warn("assist response malformed",
				"merchant", merchantName,
				"error", err)
		}
	}

	result.ModelVersion = a.client.ModelVersion()
	result.Latency = latency

	a.recordExchange(ctx, mappingID, merchantName, categoryHint, prompt, content, result)

	if result.Status != model.AssistError {
		a.cache.set(cacheKey, cachedAssist{result: result, prompt: prompt, rawResponse: content})
	}

	return result
}

// invoke runs the provider call under the configured timeout with retries.
func (a *Assistant) invoke(ctx context.Context, prompt string) (string, error) {
	var content string

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		if err := a.rateLimiter.wait(callCtx); err != nil {
			return err
		}

		reply, err := a.client.Complete(callCtx, systemPrompt, prompt)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrAssistTransport, err)
		}
		content = reply
		return nil
	}

	if err := common.WithRetry(ctx, operation, a.retryOpts); err != nil {
		return "", err
	}
	return content, nil
}

// fewShotExamples retrieves prior exchanges for context. Retrieval failure
// is not fatal; the prompt just goes out without examples.
func (a *Assistant) fewShotExamples(ctx context.Context, merchantName string) []model.ClassificationExchange {
	examples, err := a.corpus.GetSimilarExchanges(ctx, merchantName, a.fewShotK)
	if err != nil {
		a.logger.Debug("few-shot retrieval failed", "merchant", merchantName, "error", err)
		return nil
	}
	return examples
}

// recordExchange writes the invocation to the corpus. A failed write is
// logged but never blocks the result from reaching the router.
func (a *Assistant) recordExchange(ctx context.Context, mappingID, merchantName, categoryHint, prompt, rawResponse string, result model.AssistResult) {
	exchange := &model.ClassificationExchange{
		ID:               uuid.New().String(),
		MappingID:        mappingID,
		MerchantName:     merchantName,
		Category:         categoryHint,
		RequestPayload:   prompt,
		RawResponse:      rawResponse,
		ParsedTicker:     result.Ticker,
		ParsedConfidence: result.Confidence,
		ParsedStatus:     result.Status,
		Reasoning:        result.Reasoning,
		ModelVersion:     result.ModelVersion,
		ProcessingTimeMs: result.Latency.Milliseconds(),
		IsError:          result.Status == model.AssistError,
	}

	if err := a.corpus.RecordExchange(ctx, exchange); err != nil {
		common.LogError(err, "failed to record assist exchange", common.Fields{
			"mapping_id": mappingID,
			"merchant":   merchantName,
		})
	}
}

// buildAssistPrompt assembles the structured request with few-shot context,
// most recent examples first.
func buildAssistPrompt(merchantName, categoryHint string, examples []model.ClassificationExchange) string {
	var b strings.Builder

	b.WriteString("Map this merchant to the stock ticker of its parent company.\n\n")
	fmt.Fprintf(&b, "Merchant: %s\n", merchantName)
	if categoryHint != "" {
		fmt.Fprintf(&b, "Category hint: %s\n", categoryHint)
	}

	if len(examples) > 0 {
		b.WriteString("\nPrior classifications of similar merchants:\n")
		for _, ex := range examples {
			if ex.IsError || ex.ParsedTicker == "" {
				continue
			}
			verdict := ""
			if ex.Feedback != nil {
				if ex.Feedback.WasCorrect {
					verdict = " (confirmed correct)"
				} else if ex.Feedback.CorrectedTicker != "" {
					verdict = fmt.Sprintf(" (corrected to %s)", ex.Feedback.CorrectedTicker)
				}
			}
			fmt.Fprintf(&b, "- %q -> %s (confidence %.2f)%s\n",
				ex.MerchantName, ex.ParsedTicker, ex.ParsedConfidence, verdict)
		}
	}

	b.WriteString(`
Respond with JSON only:
{
  "ticker": "<US stock ticker, or empty string if the company is not publicly traded>",
  "confidence": <0.0-1.0>,
  "status": "<approved|rejected|review_required|uncertain>",
  "reasoning": "<one sentence>"
}

Use "rejected" when the merchant has no tradable parent company.
Use "uncertain" when you cannot identify the merchant.`)

	return b.String()
}
