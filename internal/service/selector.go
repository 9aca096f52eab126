package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/port/database"
)

// WindowSelector picks the tenants due a warning at each threshold.
type WindowSelector struct {
	store  database.TenantStore
	log    database.NotificationLog
	dedupe bool
}

// NewWindowSelector creates a WindowSelector. With dedupe set, tenants that
// already received the warning for the same threshold and end date are dropped.
func NewWindowSelector(store database.TenantStore, log database.NotificationLog, dedupe bool) *WindowSelector {
	return &WindowSelector{store: store, log: log, dedupe: dedupe}
}

// Select evaluates the thresholds in order (7, 3, 1 days). A tenant appears
// at most once per threshold.
func (s *WindowSelector) Select(ctx context.Context, now time.Time) ([]notification.Candidate, error) {
	var out []notification.Candidate
	for _, th := range notification.Thresholds() {
		w := notification.WindowFor(now, th)

		found, err := s.store.FindTenantsInWindow(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", th.Type, err)
		}

		seen := make(map[int64]bool, len(found))
		for i := range found {
			c := found[i]
			if seen[c.TenantID] || c.Email == "" || !w.Contains(c.EndDate) {
				continue
			}
			seen[c.TenantID] = true
			c.Threshold = th

			if s.dedupe && s.log != nil {
				done, err := s.log.WasNotified(ctx, c.TenantID, th.Days, c.EndDate)
				if err != nil {
					return nil, fmt.Errorf("select %s: %w", th.Type, err)
				}
				if done {
					slog.DebugContext(ctx, "warning already sent", "tenant_id", c.TenantID, "type", th.Type)
					continue
				}
			}
			out = append(out, c)
		}
	}
	return out, nil
}
