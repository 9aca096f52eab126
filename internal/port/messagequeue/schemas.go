package messagequeue

import "time"

// TenantExpiredPayload is the schema for subscriptions.expired messages.
type TenantExpiredPayload struct {
	RunID        string    `json:"run_id"`
	TenantID     int64     `json:"tenant_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PriorEndDate time.Time `json:"prior_end_date"`
}

// WarningSentPayload is the schema for subscriptions.warning.sent messages.
type WarningSentPayload struct {
	RunID    string `json:"run_id"`
	TenantID int64  `json:"tenant_id"`
	Email    string `json:"email"`
	DaysLeft int    `json:"days_left"`
	Type     string `json:"type"`
}

// RunCompletedPayload is the schema for subscriptions.run.completed messages.
type RunCompletedPayload struct {
	RunID             string `json:"run_id"`
	ExpiredCount      int    `json:"expired_count"`
	NotificationsSent int    `json:"notifications_sent"`
	FailedCount       int    `json:"failed_count"`
	SkippedCount      int    `json:"skipped_count"`
	DurationMs        int64  `json:"duration_ms"`
}
