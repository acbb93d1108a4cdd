package storage

import (
	"context"
	"fmt"

	"github.com/roundlot/ticker-scout/internal/model"
)

// SaveRule inserts a new rule. Rules are immutable once loaded into an
// engine; edits are modeled as new rows with better priority.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (pattern, match_type, ticker, canonical_name, category, base_confidence, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rule.Pattern,
		string(rule.MatchType),
		rule.Ticker,
		rule.CanonicalName,
		rule.Category,
		rule.BaseConfidence,
		rule.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read rule id: %w", err)
	}
	rule.ID = id

	return nil
}

// GetRules returns all rules in registration order (rowid order), which the
// engine relies on for deterministic tie breaking.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern, match_type, ticker, canonical_name, category, base_confidence, priority
		FROM rules
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleSet []model.Rule
	for rows.Next() {
		var rule model.Rule
		var matchType string
		if err := rows.Scan(
			&rule.ID,
			&rule.Pattern,
			&matchType,
			&rule.Ticker,
			&rule.CanonicalName,
			&rule.Category,
			&rule.BaseConfidence,
			&rule.Priority,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.MatchType = model.MatchType(matchType)
		ruleSet = append(ruleSet, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rule rows: %w", err)
	}

	return ruleSet, nil
}
