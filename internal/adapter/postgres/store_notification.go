package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
)

func (s *Store) WasNotified(ctx context.Context, tenantID int64, leadDays int, endDate time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM notification_log
		   WHERE tenant_id = $1 AND lead_days = $2 AND subscription_end_date = $3 AND status = 'sent'
		 )`, tenantID, leadDays, endDate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification log for tenant %d: %w", tenantID, err)
	}
	return exists, nil
}

// RecordAttempt appends an outcome. A second "sent" row for the same key is
// dropped by the partial unique index.
func (s *Store) RecordAttempt(ctx context.Context, runID string, o *notification.Outcome) error {
	c := &o.Candidate
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_log
		   (tenant_id, lead_days, subscription_end_date, notification_type, email, status, error, run_id, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9)
		 ON CONFLICT (tenant_id, lead_days, subscription_end_date) WHERE status = 'sent' DO NOTHING`,
		c.TenantID, c.Threshold.Days, c.EndDate, string(c.Threshold.Type), c.Email,
		string(o.Status), o.Error, runID, o.At)
	if err != nil {
		return fmt.Errorf("record notification for tenant %d: %w", c.TenantID, err)
	}
	return nil
}
