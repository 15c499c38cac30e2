package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/activity-poller/internal/domain"
)

// RecordDispatch appends a dispatched payload to the dispatch log.
func (s *PostgresStore) RecordDispatch(ctx context.Context, rec domain.DispatchRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dispatches (id, trigger_ref, repository, event_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.TriggerRef, rec.Repository, rec.EventID, rec.EventType, rec.Payload)
	if err != nil {
		return fmt.Errorf("inserting dispatch: %w", err)
	}
	return nil
}

// ListDispatches returns the most recent dispatches, optionally filtered by event type.
func (s *PostgresStore) ListDispatches(ctx context.Context, eventType string, limit int) ([]domain.DispatchRecord, error) {
	query := `SELECT id, trigger_ref, repository, event_id, event_type, payload, dispatched_at FROM dispatches`
	args := []interface{}{}
	argIdx := 1

	if eventType != "" {
		query += fmt.Sprintf(" WHERE event_type = $%d", argIdx)
		args = append(args, eventType)
		argIdx++
	}

	query += " ORDER BY dispatched_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dispatches: %w", err)
	}
	defer rows.Close()

	var records []domain.DispatchRecord
	for rows.Next() {
		var r domain.DispatchRecord
		err := rows.Scan(&r.ID, &r.TriggerRef, &r.Repository, &r.EventID, &r.EventType, &r.Payload, &r.DispatchedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning dispatch: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatches: %w", err)
	}

	if records == nil {
		records = []domain.DispatchRecord{}
	}

	return records, nil
}

// DispatchStats holds aggregated dispatch counts.
type DispatchStats struct {
	TotalDispatches int            `json:"total_dispatches"`
	Repositories    int            `json:"repositories"`
	ByType          map[string]int `json:"by_type"`
}

// GetDispatchStats aggregates the dispatch log.
func (s *PostgresStore) GetDispatchStats(ctx context.Context) (*DispatchStats, error) {
	stats := DispatchStats{ByType: map[string]int{}}

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT repository) FROM dispatches
	`).Scan(&stats.TotalDispatches, &stats.Repositories)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch totals: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT event_type, COUNT(*) FROM dispatches GROUP BY event_type
	`)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scanning dispatch type: %w", err)
		}
		stats.ByType[eventType] = count
	}

	return &stats, rows.Err()
}
