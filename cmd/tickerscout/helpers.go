package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/roundlot/ticker-scout/internal/config"
	"github.com/roundlot/ticker-scout/internal/engine"
	"github.com/roundlot/ticker-scout/internal/llm"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/refdata"
	"github.com/roundlot/ticker-scout/internal/rules"
	"github.com/roundlot/ticker-scout/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "tickerscout", "tickerscout.db")
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildEngine assembles the full classification pipeline from configuration.
func buildEngine(ctx context.Context, store *storage.SQLiteStorage) (*engine.Engine, func(), error) {
	ruleSet, err := store.GetRules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	classifier := rules.NewEngine(ruleSet)
	logger := slog.Default()
	logger.Debug("rule engine loaded", "rules", classifier.RuleCount())

	var assistant engine.Assistant
	cleanup := func() {}

	assistCfg := config.AssistConfig()
	if assistCfg.Provider != "" {
		llmAssistant, assistErr := llm.NewAssistant(assistCfg, store, logger)
		if assistErr != nil {
			return nil, nil, fmt.Errorf("failed to create assist client: %w", assistErr)
		}
		assistant = llmAssistant
		cleanup = llmAssistant.Close
	} else {
		assistant = unavailableAssistant{}
	}

	eng := engine.NewWithConfig(store, classifier, assistant,
		refdata.DefaultReferenceData(), logger, config.EngineConfig())

	return eng, cleanup, nil
}

// unavailableAssistant stands in when no assist provider is configured.
// Every call degrades to the same review outcome a transport failure would.
type unavailableAssistant struct{}

func (unavailableAssistant) Assist(_ context.Context, _, _, _ string) model.AssistResult {
	return model.AssistResult{
		Status:    model.AssistError,
		Reasoning: "assist unavailable: no provider configured",
	}
}
