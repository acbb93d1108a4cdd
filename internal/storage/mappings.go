package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roundlot/ticker-scout/internal/common"
	"github.com/roundlot/ticker-scout/internal/model"
	"github.com/roundlot/ticker-scout/internal/service"
)

// mappingColumns is the canonical column list for mapping queries.
const mappingColumns = `id, transaction_id, user_id, merchant_name, canonical_company_name,
	ticker, category, confidence, status, source_type, ai_requested,
	round_up_cents, reviewed_by, review_note, reviewed_at, created_at, updated_at`

// CreateMapping inserts a new mapping record. If an active (non-rejected)
// mapping already exists for the same (transaction_id, user_id) pair the
// call fails with common.ErrDuplicateMapping.
func (s *SQLiteStorage) CreateMapping(ctx context.Context, mapping *model.MappingRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings (
			id, transaction_id, user_id, merchant_name, canonical_company_name,
			ticker, category, confidence, status, source_type, ai_requested,
			round_up_cents, reviewed_by, review_note, reviewed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		mapping.ID,
		mapping.TransactionID,
		mapping.UserID,
		mapping.MerchantName,
		mapping.CanonicalCompanyName,
		mapping.Ticker,
		mapping.Category,
		mapping.Confidence,
		string(mapping.Status),
		string(mapping.SourceType),
		mapping.AIRequested,
		mapping.RoundUpCents,
		mapping.ReviewedBy,
		mapping.ReviewNote,
		nullableTime(mapping.ReviewedAt),
		mapping.CreatedAt,
		mapping.UpdatedAt,
	)
	if err != nil {
		// The partial unique index enforces the one-active-mapping invariant.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: transaction %s, user %s",
				common.ErrDuplicateMapping, mapping.TransactionID, mapping.UserID)
		}
		return fmt.Errorf("failed to create mapping: %w", err)
	}

	return nil
}

// GetMapping retrieves a mapping record by ID.
func (s *SQLiteStorage) GetMapping(ctx context.Context, id string) (*model.MappingRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM mappings WHERE id = ?`, id)
	return scanMapping(row)
}

// GetMappingByTransaction retrieves the active mapping for a transaction and
// user, preferring non-rejected records. Returns common.ErrNotFound when no
// record exists.
func (s *SQLiteStorage) GetMappingByTransaction(ctx context.Context, transactionID, userID string) (*model.MappingRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+` FROM mappings
		WHERE transaction_id = ? AND user_id = ?
		ORDER BY (status != 'rejected') DESC, created_at DESC
		LIMIT 1
	`, transactionID, userID)
	return scanMapping(row)
}

// GetQueue returns mapping records matching the filter, newest first, with
// limit/offset pagination.
func (s *SQLiteStorage) GetQueue(ctx context.Context, filter service.QueueFilter) ([]model.MappingRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + mappingColumns + ` FROM mappings`
	var conditions []string
	var args []any

	if filter.Status != "" {
		if err := validateStatus(filter.Status); err != nil {
			return nil, err
		}
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.MappingRecord
	for rows.Next() {
		record, scanErr := scanMappingRows(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}

	return records, nil
}

// UpdateMappingStatus applies a compare-and-swap status transition. The
// write succeeds only when the record's current status is one of
// fromStatuses; otherwise it fails with common.ErrInvalidTransition (or
// common.ErrNotFound if the record does not exist). Two concurrent calls
// against the same record resolve so exactly one wins.
func (s *SQLiteStorage) UpdateMappingStatus(ctx context.Context, id string, fromStatuses []model.MappingStatus, update service.MappingUpdate) (*model.MappingRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if err := validateStatus(update.Status); err != nil {
		return nil, err
	}
	if len(fromStatuses) == 0 {
		return nil, fmt.Errorf("%w: fromStatuses", ErrNilParameter)
	}

	setClauses := []string{"status = ?", "updated_at = ?"}
	args := []any{string(update.Status), time.Now().UTC()}

	if update.Ticker != nil {
		setClauses = append(setClauses, "ticker = ?")
		args = append(args, *update.Ticker)
	}
	if update.Category != nil {
		setClauses = append(setClauses, "category = ?")
		args = append(args, *update.Category)
	}
	if update.CanonicalCompanyName != nil {
		setClauses = append(setClauses, "canonical_company_name = ?")
		args = append(args, *update.CanonicalCompanyName)
	}
	if update.Confidence != nil {
		setClauses = append(setClauses, "confidence = ?")
		args = append(args, *update.Confidence)
	}
	if update.SourceType != nil {
		setClauses = append(setClauses, "source_type = ?")
		args = append(args, string(*update.SourceType))
	}
	if update.ReviewedBy != nil {
		setClauses = append(setClauses, "reviewed_by = ?")
		args = append(args, *update.ReviewedBy)
	}
	if update.ReviewNote != nil {
		setClauses = append(setClauses, "review_note = ?")
		args = append(args, *update.ReviewNote)
	}
	if update.ReviewedAt != nil {
		setClauses = append(setClauses, "reviewed_at = ?")
		args = append(args, *update.ReviewedAt)
	}
	if update.AIRequested != nil {
		setClauses = append(setClauses, "ai_requested = ?")
		args = append(args, *update.AIRequested)
	}

	placeholders := make([]string, len(fromStatuses))
	args = append(args, id)
	for i, status := range fromStatuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}

	query := fmt.Sprintf(
		"UPDATE mappings SET %s WHERE id = ? AND status IN (%s)",
		strings.Join(setClauses, ", "),
		strings.Join(placeholders, ", "),
	)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update mapping status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetMapping(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: mapping %s is %s", common.ErrInvalidTransition, id, current.Status)
	}

	return s.GetMapping(ctx, id)
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row *sql.Row) (*model.MappingRecord, error) {
	record, err := scanMappingFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func scanMappingRows(rows *sql.Rows) (*model.MappingRecord, error) {
	return scanMappingFrom(rows)
}

func scanMappingFrom(s scanner) (*model.MappingRecord, error) {
	var record model.MappingRecord
	var status, sourceType string
	var reviewedAt sql.NullTime

	err := s.Scan(
		&record.ID,
		&record.TransactionID,
		&record.UserID,
		&record.MerchantName,
		&record.CanonicalCompanyName,
		&record.Ticker,
		&record.Category,
		&record.Confidence,
		&status,
		&sourceType,
		&record.AIRequested,
		&record.RoundUpCents,
		&record.ReviewedBy,
		&record.ReviewNote,
		&reviewedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan mapping: %w", err)
	}

	record.Status = model.MappingStatus(status)
	record.SourceType = model.SourceType(sourceType)
	if reviewedAt.Valid {
		record.ReviewedAt = &reviewedAt.Time
	}

	return &record, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
