package service

import (
	"context"
	"log/slog"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/run"
)

// Aggregate builds the run summary and logs it once.
func Aggregate(ctx context.Context, r *run.Report) run.Summary {
	s := r.Summarize()
	slog.InfoContext(ctx, "subscription check completed",
		"expired_count", s.ExpiredCount,
		"notifications_sent", s.NotificationsSent,
		"notifications_failed", r.Count(notification.StatusFailed),
		"notifications_skipped", r.Count(notification.StatusSkipped),
		"expired_tenants", s.ExpiredTenants,
		"notifications", s.Notifications,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	)
	return s
}
