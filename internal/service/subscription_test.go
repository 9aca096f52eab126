package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/subscription"
	"github.com/conciergehq/lifecycle/internal/domain/tenant"
)

func TestSubscriptionService_Get(t *testing.T) {
	store := newMockStore()
	store.tariffs["pro"] = tenant.Tariff{ID: "pro", Name: "Профи", RenewalPrice: decimal.NewFromInt(999), Period: "месяц"}
	store.addTenant(tenant.Tenant{ID: 1, Name: "Alpha", Status: tenant.StatusActive, SubscriptionEndDate: ptrTime(testNow.Add(5*day + time.Hour)), TariffID: "pro"})
	store.addTenant(tenant.Tenant{ID: 2, Name: "Beta", Status: tenant.StatusNoSubscription})

	svc := NewSubscriptionService(store)
	svc.now = func() time.Time { return testNow }

	info, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.Status != tenant.StatusActive || info.DaysLeft != 5 || info.TariffName != "Профи" || !info.RenewalPrice.Equal(decimal.NewFromInt(999)) {
		t.Errorf("unexpected info %+v", info)
	}

	info, err = svc.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.Status != tenant.StatusNoSubscription || info.TariffName != subscription.UnknownTariffName {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestSubscriptionService_NotFound(t *testing.T) {
	_, err := NewSubscriptionService(newMockStore()).Get(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
