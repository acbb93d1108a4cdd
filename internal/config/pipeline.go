package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/roundlot/ticker-scout/internal/engine"
	"github.com/roundlot/ticker-scout/internal/llm"
)

// EngineConfig reads the pipeline section from viper, falling back to
// defaults for anything unset.
func EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	if viper.IsSet("pipeline.auto_threshold") {
		cfg.Thresholds.AutoThreshold = viper.GetFloat64("pipeline.auto_threshold")
	}
	if viper.IsSet("pipeline.review_floor") {
		cfg.Thresholds.ReviewFloor = viper.GetFloat64("pipeline.review_floor")
	}
	if viper.IsSet("pipeline.allow_resubmission") {
		cfg.AllowResubmission = viper.GetBool("pipeline.allow_resubmission")
	}

	return cfg
}

// AssistConfig reads the assist section from viper.
func AssistConfig() llm.Config {
	return llm.Config{
		Provider:    viper.GetString("assist.provider"),
		APIKey:      viper.GetString("assist.api_key"),
		Model:       viper.GetString("assist.model"),
		MaxRetries:  viper.GetInt("assist.max_retries"),
		RetryDelay:  viper.GetDuration("assist.retry_delay"),
		CacheTTL:    viper.GetDuration("assist.cache_ttl"),
		RateLimit:   viper.GetInt("assist.rate_limit"),
		Timeout:     assistTimeout(),
		FewShotK:    viper.GetInt("assist.few_shot_examples"),
		Temperature: viper.GetFloat64("assist.temperature"),
		MaxTokens:   viper.GetInt("assist.max_tokens"),
	}
}

func assistTimeout() time.Duration {
	if viper.IsSet("assist.timeout") {
		return viper.GetDuration("assist.timeout")
	}
	return 20 * time.Second
}
