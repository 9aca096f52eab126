package service

import (
	"context"
	"fmt"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/subscription"
	"github.com/conciergehq/lifecycle/internal/port/database"
)

// SubscriptionService answers subscription queries for a tenant.
type SubscriptionService struct {
	store database.TenantStore
	now   func() time.Time
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(store database.TenantStore) *SubscriptionService {
	return &SubscriptionService{store: store, now: time.Now}
}

// Get returns the subscription view for tenantID. A missing tenant yields
// an error wrapping domain.ErrNotFound.
func (s *SubscriptionService) Get(ctx context.Context, tenantID int64) (subscription.Info, error) {
	src, err := s.store.GetSubscription(ctx, tenantID)
	if err != nil {
		return subscription.Info{}, fmt.Errorf("get subscription %d: %w", tenantID, err)
	}
	return subscription.Derive(src, s.now()), nil
}
