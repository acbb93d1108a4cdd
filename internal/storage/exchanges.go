package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
)

const exchangeColumns = `id, mapping_id, merchant_name, category, request_payload,
	raw_response, parsed_ticker, parsed_confidence, parsed_status, reasoning,
	model_version, processing_time_ms, is_error,
	feedback_was_correct, feedback_corrected_ticker, feedback_note, created_at`

// RecordExchange appends a classification exchange to the learning corpus.
// Exchange rows are write-once; only feedback columns may change afterwards.
func (s *SQLiteStorage) RecordExchange(ctx context.Context, exchange *model.ClassificationExchange) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExchange(exchange); err != nil {
		return err
	}

	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (
			id, mapping_id, merchant_name, category, request_payload,
			raw_response, parsed_ticker, parsed_confidence, parsed_status,
			reasoning, model_version, processing_time_ms, is_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exchange.ID,
		exchange.MappingID,
		exchange.MerchantName,
		exchange.Category,
		exchange.RequestPayload,
		exchange.RawResponse,
		exchange.ParsedTicker,
		exchange.ParsedConfidence,
		string(exchange.ParsedStatus),
		exchange.Reasoning,
		exchange.ModelVersion,
		exchange.ProcessingTimeMs,
		exchange.IsError,
		exchange.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}

	return nil
}

// GetExchange retrieves an exchange by ID.
func (s *SQLiteStorage) GetExchange(ctx context.Context, id string) (*model.ClassificationExchange, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+exchangeColumns+` FROM exchanges WHERE id = ?`, id)

	exchange, err := scanExchange(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return exchange, nil
}

// GetExchangesByMapping returns all exchanges linked to a mapping, newest first.
func (s *SQLiteStorage) GetExchangesByMapping(ctx context.Context, mappingID string) ([]model.ClassificationExchange, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(mappingID, "mappingID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+exchangeColumns+` FROM exchanges
		WHERE mapping_id = ?
		ORDER BY created_at DESC, id DESC
	`, mappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectExchanges(rows)
}

// GetSimilarExchanges performs a case-insensitive substring match over stored
// merchant names and returns the k most recent successful exchanges. Failed
// invocations are excluded so they cannot crowd out usable examples.
// Deliberately simple nearest-neighbor retrieval; it backs the few-shot
// context for AI assist.
func (s *SQLiteStorage) GetSimilarExchanges(ctx context.Context, merchantName string, k int) ([]model.ClassificationExchange, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchantName, "merchantName"); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}

	// Match in both directions: stored names containing the target, and the
	// target containing stored names ("AMAZON MKTP" should find "AMAZON").
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+exchangeColumns+` FROM exchanges
		WHERE is_error = 0
		  AND (instr(upper(merchant_name), upper(?)) > 0
		   OR instr(upper(?), upper(merchant_name)) > 0)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, merchantName, merchantName, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectExchanges(rows)
}

// AttachExchangeFeedback adds moderator feedback to an existing exchange.
// The original request/response columns are never rewritten.
func (s *SQLiteStorage) AttachExchangeFeedback(ctx context.Context, exchangeID string, feedback model.ExchangeFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(exchangeID, "exchangeID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE exchanges
		SET feedback_was_correct = ?, feedback_corrected_ticker = ?, feedback_note = ?
		WHERE id = ?
	`, feedback.WasCorrect, feedback.CorrectedTicker, feedback.Note, exchangeID)
	if err != nil {
		return fmt.Errorf("failed to attach feedback: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: exchange %s", common.ErrNotFound, exchangeID)
	}

	return nil
}

func collectExchanges(rows *sql.Rows) ([]model.ClassificationExchange, error) {
	var exchanges []model.ClassificationExchange
	for rows.Next() {
		exchange, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, *exchange)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchange rows: %w", err)
	}

	return exchanges, nil
}

func scanExchange(s scanner) (*model.ClassificationExchange, error) {
	var exchange model.ClassificationExchange
	var parsedStatus string
	var feedbackWasCorrect sql.NullBool
	var feedbackTicker, feedbackNote sql.NullString

	err := s.Scan(
		&exchange.ID,
		&exchange.MappingID,
		&exchange.MerchantName,
		&exchange.Category,
		&exchange.RequestPayload,
		&exchange.RawResponse,
		&exchange.ParsedTicker,
		&exchange.ParsedConfidence,
		&parsedStatus,
		&exchange.Reasoning,
		&exchange.ModelVersion,
		&exchange.ProcessingTimeMs,
		&exchange.IsError,
		&feedbackWasCorrect,
		&feedbackTicker,
		&feedbackNote,
		&exchange.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan exchange: %w", err)
	}

	exchange.ParsedStatus = model.AssistStatus(parsedStatus)
	if feedbackWasCorrect.Valid {
		exchange.Feedback = &model.ExchangeFeedback{
			WasCorrect:      feedbackWasCorrect.Bool,
			CorrectedTicker: feedbackTicker.String,
			Note:            feedbackNote.String,
		}
	}

	return &exchange, nil
}
