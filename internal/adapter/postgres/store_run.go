package postgres

import (
	"context"
	"fmt"

	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/run"
)

const maxRunsLimit = 200

func (s *Store) CreateRun(ctx context.Context, rec *run.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO lifecycle_runs (id, started_at) VALUES ($1, $2)`,
		rec.ID, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("create run %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) FinishRun(ctx context.Context, rec *run.Record) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lifecycle_runs
		 SET finished_at = $2, expired_count = $3, notifications_sent = $4,
		     failed_count = $5, skipped_count = $6, error = $7
		 WHERE id = $1`,
		rec.ID, rec.FinishedAt, rec.ExpiredCount, rec.NotificationsSent,
		rec.FailedCount, rec.SkippedCount, rec.Error)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]run.Record, error) {
	if limit <= 0 || limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, started_at, finished_at, expired_count, notifications_sent,
		        failed_count, skipped_count, error
		 FROM lifecycle_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []run.Record
	for rows.Next() {
		var r run.Record
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.ExpiredCount,
			&r.NotificationsSent, &r.FailedCount, &r.SkippedCount, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	return orEmpty(result), rows.Err()
}
