// Package subscription derives the subscription view shown to a tenant.
package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/conciergehq/lifecycle/internal/domain/tenant"
)

// UnknownTariffName is shown when the tenant has no tariff.
const UnknownTariffName = "Не указан"

// Source is the joined tenant/tariff row the view is derived from.
type Source struct {
	TenantID     int64
	TenantName   string
	TariffID     string
	EndDate      *time.Time
	TariffName   string
	RenewalPrice decimal.Decimal
	Period       string
}

// Info is the subscription view of a tenant.
type Info struct {
	Status       tenant.Status   `json:"status"`
	EndDate      *time.Time      `json:"end_date"`
	TariffID     string          `json:"tariff_id,omitempty"`
	TariffName   string          `json:"tariff_name"`
	RenewalPrice decimal.Decimal `json:"renewal_price"`
	DaysLeft     int             `json:"days_left"`
	Period       string          `json:"period"`
}

// Derive computes the view at now. Status comes from whole days remaining,
// not from the stored status column: less than one full day left reads as expired.
func Derive(src *Source, now time.Time) Info {
	info := Info{
		EndDate:      src.EndDate,
		TariffID:     src.TariffID,
		TariffName:   src.TariffName,
		RenewalPrice: src.RenewalPrice,
		Period:       src.Period,
	}
	if info.TariffName == "" {
		info.TariffName = UnknownTariffName
	}
	if info.Period == "" {
		info.Period = tenant.DefaultPeriod
	}

	if src.EndDate == nil {
		info.Status = tenant.StatusNoSubscription
		return info
	}

	days := int(src.EndDate.Sub(now) / (24 * time.Hour))
	if days > 0 {
		info.Status = tenant.StatusActive
		info.DaysLeft = days
	} else {
		info.Status = tenant.StatusExpired
	}
	return info
}
