// Package run defines the result of one lifecycle engine run and its
// persisted history record.
package run

import (
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/tenant"
)

// Report is the full in-memory result of a run.
type Report struct {
	ID         string                 `json:"run_id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Expired    []tenant.Expired       `json:"expired"`
	Outcomes   []notification.Outcome `json:"outcomes"`
}

// ExpiredTenant is the summary entry for a transitioned tenant.
type ExpiredTenant struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SentNotification is the summary entry for a delivered warning.
type SentNotification struct {
	TenantID int64             `json:"tenant_id"`
	Email    string            `json:"email"`
	DaysLeft int               `json:"days_left"`
	Type     notification.Type `json:"type"`
}

// Summary is the response body of the trigger endpoint.
type Summary struct {
	OK                bool               `json:"ok"`
	RunID             string             `json:"run_id,omitempty"`
	ExpiredCount      int                `json:"expired_count"`
	NotificationsSent int                `json:"notifications_sent"`
	ExpiredTenants    []ExpiredTenant    `json:"expired_tenants"`
	Notifications     []SentNotification `json:"notifications"`
}

// Summarize assembles the run summary. Only sent notifications are listed.
func (r *Report) Summarize() Summary {
	s := Summary{
		OK:             true,
		RunID:          r.ID,
		ExpiredCount:   len(r.Expired),
		ExpiredTenants: make([]ExpiredTenant, 0, len(r.Expired)),
		Notifications:  make([]SentNotification, 0, len(r.Outcomes)),
	}
	for _, e := range r.Expired {
		s.ExpiredTenants = append(s.ExpiredTenants, ExpiredTenant{ID: e.ID, Name: e.Name, Email: e.OwnerEmail})
	}
	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		if !o.Sent() {
			continue
		}
		s.Notifications = append(s.Notifications, SentNotification{
			TenantID: o.Candidate.TenantID,
			Email:    o.Candidate.Email,
			DaysLeft: o.Candidate.Threshold.Days,
			Type:     o.Candidate.Threshold.Type,
		})
	}
	s.NotificationsSent = len(s.Notifications)
	return s
}

// Count returns how many outcomes have the given status.
func (r *Report) Count(status notification.Status) int {
	n := 0
	for i := range r.Outcomes {
		if r.Outcomes[i].Status == status {
			n++
		}
	}
	return n
}

// Record is a row of the run history.
type Record struct {
	ID                string     `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	ExpiredCount      int        `json:"expired_count"`
	NotificationsSent int        `json:"notifications_sent"`
	FailedCount       int        `json:"failed_count"`
	SkippedCount      int        `json:"skipped_count"`
	Error             string     `json:"error,omitempty"`
}

// Finish fills the counters of a history record from the report.
func (r *Report) Finish(rec *Record, runErr error) {
	t := r.FinishedAt
	rec.FinishedAt = &t
	rec.ExpiredCount = len(r.Expired)
	rec.NotificationsSent = r.Count(notification.StatusSent)
	rec.FailedCount = r.Count(notification.StatusFailed)
	rec.SkippedCount = r.Count(notification.StatusSkipped)
	if runErr != nil {
		rec.Error = runErr.Error()
	}
}
