package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roundlot/ticker-scout/internal/model"
)

// RecomputeStats rebuilds aggregate statistics from the mappings table. The
// whole aggregation runs inside one read transaction so concurrent writes
// cannot produce negative counts or double-counting. Idempotent; stats are
// derived, never incremented in place.
func (s *SQLiteStorage) RecomputeStats(ctx context.Context) (*model.AggregateStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin stats transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stats := &model.AggregateStats{
		ComputedAt: time.Now().UTC(),
		ByStatus:   make(map[model.MappingStatus]int),
	}

	rows, err := tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM mappings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if scanErr := rows.Scan(&status, &count); scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan status count: %w", scanErr)
		}
		stats.ByStatus[model.MappingStatus(status)] = count
		stats.TotalMappings += count
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	_ = rows.Close()

	var avgConfidence sql.NullFloat64
	err = tx.QueryRowContext(ctx,
		`SELECT AVG(confidence) FROM mappings WHERE status IN (?, ?)`,
		string(model.StatusApproved), string(model.StatusAutoApplied),
	).Scan(&avgConfidence)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average confidence: %w", err)
	}
	if avgConfidence.Valid {
		stats.AvgAppliedConfidence = avgConfidence.Float64
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mappings WHERE created_at >= ?`, dayStart,
	).Scan(&stats.ProcessedToday)
	if err != nil {
		return nil, fmt.Errorf("failed to count daily processed: %w", err)
	}

	return stats, nil
}
