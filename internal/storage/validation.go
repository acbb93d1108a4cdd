package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roundlot/ticker-scout/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidStatus  = errors.New("invalid mapping status")
	ErrInvalidMapping = errors.New("invalid mapping record")
	ErrInvalidRule    = errors.New("invalid rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateStatus ensures a status is one of the known lifecycle values.
func validateStatus(status model.MappingStatus) error {
	switch status {
	case model.StatusPending, model.StatusNeedsReview, model.StatusAutoApplied,
		model.StatusApproved, model.StatusRejected:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// validateMapping validates a mapping record before insert.
func validateMapping(mapping *model.MappingRecord) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if mapping.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidMapping)
	}
	if mapping.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidMapping)
	}
	if mapping.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidMapping)
	}
	if mapping.MerchantName == "" {
		return fmt.Errorf("%w: missing merchant name", ErrInvalidMapping)
	}
	return validateStatus(mapping.Status)
}

// validateExchange validates an exchange record before insert.
func validateExchange(exchange *model.ClassificationExchange) error {
	if exchange == nil {
		return fmt.Errorf("%w: exchange", ErrNilParameter)
	}
	if exchange.ID == "" {
		return fmt.Errorf("%w: missing exchange ID", ErrNilParameter)
	}
	if exchange.MappingID == "" {
		return fmt.Errorf("%w: missing mapping ID", ErrNilParameter)
	}
	if exchange.MerchantName == "" {
		return fmt.Errorf("%w: missing merchant name", ErrNilParameter)
	}
	return nil
}

// validateRule validates a rule before insert.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.Pattern == "" {
		return fmt.Errorf("%w: missing pattern", ErrInvalidRule)
	}
	if rule.Ticker == "" {
		return fmt.Errorf("%w: missing ticker", ErrInvalidRule)
	}
	if rule.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	switch rule.MatchType {
	case model.MatchExact, model.MatchPrefix, model.MatchSubstring, model.MatchFuzzy:
	default:
		return fmt.Errorf("%w: unknown match type %q", ErrInvalidRule, rule.MatchType)
	}
	if rule.BaseConfidence < 0 || rule.BaseConfidence > 100 {
		return fmt.Errorf("%w: base confidence out of range", ErrInvalidRule)
	}
	return nil
}
