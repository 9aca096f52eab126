package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/subscription"
	"github.com/conciergehq/lifecycle/internal/domain/tenant"
)

// --- Expiry ---

func (s *Store) FindExpirableTenants(ctx context.Context, now time.Time) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_email, subscription_status, subscription_end_date, tariff_id
		 FROM tenants
		 WHERE subscription_status = 'active' AND subscription_end_date < $1
		 ORDER BY id`, now)
	if err != nil {
		return nil, fmt.Errorf("find expirable tenants: %w", err)
	}
	defer rows.Close()

	var result []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// ExpireTenant re-checks the guard inside the transaction so a tenant that
// was renewed or expired by a concurrent scan is left alone.
func (s *Store) ExpireTenant(ctx context.Context, tenantID int64, now time.Time) (tenant.Expired, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return tenant.Expired{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var e tenant.Expired
	var email *string
	err = tx.QueryRow(ctx,
		`UPDATE tenants SET subscription_status = 'expired', updated_at = NOW()
		 WHERE id = $1 AND subscription_status = 'active' AND subscription_end_date < $2
		 RETURNING id, name, owner_email, subscription_end_date`,
		tenantID, now,
	).Scan(&e.ID, &e.Name, &email, &e.PriorEndDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.Expired{}, false, nil
	}
	if err != nil {
		return tenant.Expired{}, false, fmt.Errorf("expire tenant %d: %w", tenantID, err)
	}
	e.OwnerEmail = deref(email)

	if _, err := tx.Exec(ctx,
		`UPDATE admin_users SET subscription_status = 'expired', is_active = false
		 WHERE tenant_id = $1`, tenantID); err != nil {
		return tenant.Expired{}, false, fmt.Errorf("deactivate admin users of tenant %d: %w", tenantID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return tenant.Expired{}, false, fmt.Errorf("commit expire tenant %d: %w", tenantID, err)
	}
	return e, true, nil
}

// --- Warning windows ---

func (s *Store) FindTenantsInWindow(ctx context.Context, w notification.Window) ([]notification.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.owner_email, t.subscription_end_date,
		        tp.name, COALESCE(tp.renewal_price, tp.price)::text, tp.period
		 FROM tenants t
		 LEFT JOIN tariff_plans tp ON tp.id = t.tariff_id
		 WHERE t.subscription_status = 'active'
		   AND t.subscription_end_date >= $1
		   AND t.subscription_end_date < $2
		   AND t.owner_email IS NOT NULL AND t.owner_email <> ''
		 ORDER BY t.subscription_end_date, t.id`, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("find tenants in window: %w", err)
	}
	defer rows.Close()

	var result []notification.Candidate
	for rows.Next() {
		var c notification.Candidate
		var tariffName, price, period *string
		if err := rows.Scan(&c.TenantID, &c.TenantName, &c.Email, &c.EndDate, &tariffName, &price, &period); err != nil {
			return nil, fmt.Errorf("scan window candidate: %w", err)
		}
		c.TariffName = deref(tariffName)
		c.Period = deref(period)
		if c.RenewalPrice, err = parseNumeric(price); err != nil {
			return nil, fmt.Errorf("tenant %d renewal price: %w", c.TenantID, err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- Subscription view ---

func (s *Store) GetSubscription(ctx context.Context, tenantID int64) (*subscription.Source, error) {
	var src subscription.Source
	var tariffID, tariffName, price, period *string
	err := s.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.tariff_id, t.subscription_end_date,
		        tp.name, COALESCE(tp.renewal_price, tp.price)::text, tp.period
		 FROM tenants t
		 LEFT JOIN tariff_plans tp ON tp.id = t.tariff_id
		 WHERE t.id = $1`, tenantID,
	).Scan(&src.TenantID, &src.TenantName, &tariffID, &src.EndDate, &tariffName, &price, &period)
	if err != nil {
		return nil, notFoundWrap(err, "get subscription %d", tenantID)
	}
	src.TariffID = deref(tariffID)
	src.TariffName = deref(tariffName)
	src.Period = deref(period)
	if src.RenewalPrice, err = parseNumeric(price); err != nil {
		return nil, fmt.Errorf("tenant %d renewal price: %w", tenantID, err)
	}
	return &src, nil
}

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	var email, tariffID *string
	var status string
	if err := row.Scan(&t.ID, &t.Name, &email, &status, &t.SubscriptionEndDate, &tariffID); err != nil {
		return t, fmt.Errorf("scan tenant: %w", err)
	}
	t.OwnerEmail = deref(email)
	t.TariffID = deref(tariffID)
	t.Status = tenant.Status(status)
	return t, nil
}
