// Package user defines tenant admin accounts as seen by the lifecycle engine.
package user

import "github.com/conciergehq/lifecycle/internal/domain/tenant"

// AdminUser is an admin account of a tenant. The lifecycle engine only
// touches SubscriptionStatus and IsActive.
type AdminUser struct {
	ID                 int64         `json:"id"`
	TenantID           *int64        `json:"tenant_id,omitempty"`
	Username           string        `json:"username"`
	Email              string        `json:"email,omitempty"`
	Role               string        `json:"role"`
	SubscriptionStatus tenant.Status `json:"subscription_status"`
	IsActive           bool          `json:"is_active"`
}

// Deactivate applies the expiry cascade to the account.
func (u *AdminUser) Deactivate() {
	u.SubscriptionStatus = tenant.StatusExpired
	u.IsActive = false
}
