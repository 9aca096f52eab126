// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/run"
	"github.com/conciergehq/lifecycle/internal/domain/subscription"
	"github.com/conciergehq/lifecycle/internal/domain/tenant"
)

// TenantStore reads tenants and applies the expiry transition.
type TenantStore interface {
	// FindExpirableTenants returns active tenants with subscription_end_date < now.
	FindExpirableTenants(ctx context.Context, now time.Time) ([]tenant.Tenant, error)

	// ExpireTenant sets the tenant to expired and deactivates its admin users
	// in one transaction. It returns false if the tenant was no longer
	// expirable when the transaction ran.
	ExpireTenant(ctx context.Context, tenantID int64, now time.Time) (tenant.Expired, bool, error)

	// FindTenantsInWindow returns active tenants with an owner email whose
	// subscription_end_date lies in [w.Start, w.End), joined with their tariff.
	FindTenantsInWindow(ctx context.Context, w notification.Window) ([]notification.Candidate, error)

	// GetSubscription returns the joined tenant/tariff row for one tenant.
	GetSubscription(ctx context.Context, tenantID int64) (*subscription.Source, error)
}

// SettingsStore reads and writes global key/value settings.
type SettingsStore interface {
	GetSettings(ctx context.Context, keys []string) (map[string]string, error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// NotificationLog records dispatch outcomes.
type NotificationLog interface {
	// WasNotified reports whether a warning was already delivered for this
	// tenant, threshold and subscription end date.
	WasNotified(ctx context.Context, tenantID int64, leadDays int, endDate time.Time) (bool, error)

	// RecordAttempt appends one outcome.
	RecordAttempt(ctx context.Context, runID string, o *notification.Outcome) error
}

// RunStore persists run history.
type RunStore interface {
	CreateRun(ctx context.Context, rec *run.Record) error
	FinishRun(ctx context.Context, rec *run.Record) error
	ListRuns(ctx context.Context, limit int) ([]run.Record, error)
}

// Locker provides a cross-instance mutual exclusion lock.
type Locker interface {
	// TryLock attempts to take the lock without waiting. When acquired is
	// true the caller must call release.
	TryLock(ctx context.Context, key int64) (release func(), acquired bool, err error)
}

// Store is the port interface for all database operations.
type Store interface {
	TenantStore
	SettingsStore
	NotificationLog
	RunStore
	Locker

	Ping(ctx context.Context) error
}
