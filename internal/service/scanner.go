package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/tenant"
	"github.com/conciergehq/lifecycle/internal/port/database"
)

// ExpiryScanner moves active tenants past their end date to expired and
// deactivates their admin users.
type ExpiryScanner struct {
	store database.TenantStore
}

// NewExpiryScanner creates an ExpiryScanner.
func NewExpiryScanner(store database.TenantStore) *ExpiryScanner {
	return &ExpiryScanner{store: store}
}

// Scan transitions every tenant with status active and end date before now.
// Each tenant and its users change in one transaction. A tenant already
// handled by a concurrent scan is not reported again. A database error stops
// the scan; tenants committed before it stay expired and are returned.
func (s *ExpiryScanner) Scan(ctx context.Context, now time.Time) ([]tenant.Expired, error) {
	due, err := s.store.FindExpirableTenants(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("scan expired subscriptions: %w", err)
	}

	expired := make([]tenant.Expired, 0, len(due))
	for i := range due {
		t := &due[i]
		e, ok, err := s.store.ExpireTenant(ctx, t.ID, now)
		if err != nil {
			return expired, fmt.Errorf("scan expired subscriptions: %w", err)
		}
		if !ok {
			slog.DebugContext(ctx, "tenant no longer expirable", "tenant_id", t.ID)
			continue
		}
		slog.InfoContext(ctx, "subscription expired",
			"tenant_id", e.ID,
			"tenant_name", e.Name,
			"end_date", e.PriorEndDate,
		)
		expired = append(expired, e)
	}
	return expired, nil
}
