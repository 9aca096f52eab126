// Package notification defines expiry warning thresholds, their time windows,
// and the outcome of a single warning dispatch.
package notification

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type labels a warning by threshold.
type Type string

const (
	TypeWarning7Days Type = "warning_7days"
	TypeWarning3Days Type = "warning_3days"
	TypeWarning1Day  Type = "warning_1day"
)

// Tier is the urgency level of a warning.
type Tier string

const (
	TierInformational Tier = "informational"
	TierWarning       Tier = "warning"
	TierCritical      Tier = "critical"
)

// Threshold is a lead time before expiry at which a warning is due.
type Threshold struct {
	Days int  `json:"days"`
	Type Type `json:"type"`
}

// Tier maps the threshold to its urgency. Anything below three days is critical.
func (t Threshold) Tier() Tier {
	switch {
	case t.Days >= 7:
		return TierInformational
	case t.Days >= 3:
		return TierWarning
	default:
		return TierCritical
	}
}

// Thresholds returns the warning thresholds in evaluation order.
func Thresholds() []Threshold {
	return []Threshold{
		{Days: 7, Type: TypeWarning7Days},
		{Days: 3, Type: TypeWarning3Days},
		{Days: 1, Type: TypeWarning1Day},
	}
}

// WindowLength is the width of every warning window.
const WindowLength = 24 * time.Hour

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor returns [now + d days, now + d days + 24h).
func WindowFor(now time.Time, t Threshold) Window {
	start := now.Add(time.Duration(t.Days) * 24 * time.Hour)
	return Window{Start: start, End: start.Add(WindowLength)}
}

// Contains reports whether ts falls in the window. The lower edge is
// included and the upper edge is not.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Candidate is a tenant selected for a warning at one threshold.
type Candidate struct {
	TenantID     int64           `json:"tenant_id"`
	TenantName   string          `json:"tenant_name"`
	Email        string          `json:"email"`
	EndDate      time.Time       `json:"subscription_end_date"`
	TariffName   string          `json:"tariff_name,omitempty"`
	RenewalPrice decimal.Decimal `json:"renewal_price"`
	Period       string          `json:"period,omitempty"`
	Threshold    Threshold       `json:"threshold"`
}

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Status is the result of one dispatch attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome records what happened to one candidate in a run.
type Outcome struct {
	Candidate Candidate `json:"candidate"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Sent reports whether the warning was delivered to the transport.
func (o Outcome) Sent() bool {
	return o.Status == StatusSent
}
