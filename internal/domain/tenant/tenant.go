// Package tenant defines the hotel-operator account and its subscription state.
package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the subscription state of a tenant.
type Status string

const (
	StatusNoSubscription Status = "no_subscription"
	StatusActive         Status = "active"
	StatusExpired        Status = "expired"
)

// DefaultTariffName is used in notifications when a tenant has no tariff.
const DefaultTariffName = "Базовый"

// DefaultPeriod is the billing period label used when a tariff has none.
const DefaultPeriod = "месяц"

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNoSubscription, StatusActive, StatusExpired:
		return true
	}
	return false
}

// Tenant is a hotel-operator account subscribing to the platform.
type Tenant struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	OwnerEmail          string     `json:"owner_email,omitempty"`
	Status              Status     `json:"subscription_status"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date,omitempty"`
	TariffID            string     `json:"tariff_id,omitempty"`
}

// CanExpire reports whether the tenant is due for the active -> expired transition.
// Expired is terminal; renewals are handled by billing.
func (t *Tenant) CanExpire(now time.Time) bool {
	return t.Status == StatusActive && t.SubscriptionEndDate != nil && t.SubscriptionEndDate.Before(now)
}

// Expired is a tenant transitioned to expired by a scan.
type Expired struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OwnerEmail   string    `json:"email"`
	PriorEndDate time.Time `json:"-"`
}

// Tariff is a priced service plan. Read-only for the lifecycle engine.
type Tariff struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	RenewalPrice decimal.Decimal `json:"renewal_price"`
	Period       string          `json:"period"`
}
