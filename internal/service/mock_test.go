package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/run"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
	"github.com/conciergehq/lifecycle/internal/domain/subscription"
	"github.com/conciergehq/lifecycle/internal/domain/tenant"
	"github.com/conciergehq/lifecycle/internal/domain/user"
	"github.com/conciergehq/lifecycle/internal/port/database"
	"github.com/conciergehq/lifecycle/internal/port/messagequeue"
	"github.com/conciergehq/lifecycle/internal/port/notifier"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

type logEntry struct {
	runID   string
	outcome notification.Outcome
}

// mockStore is an in-memory database.Store.
type mockStore struct {
	mu       sync.Mutex
	tenants  map[int64]*tenant.Tenant
	tariffs  map[string]tenant.Tariff
	users    []user.AdminUser
	settings map[string]string
	log      []logEntry
	runs     []run.Record
	locked   bool

	// Error hooks
	findErr      error
	expireErrFor int64
	windowErr    error
	settingsErr  error
	lockErr      error

	settingsReads int
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants:  make(map[int64]*tenant.Tenant),
		tariffs:  make(map[string]tenant.Tariff),
		settings: make(map[string]string),
	}
}

func (m *mockStore) addTenant(t tenant.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = &t
}

func (m *mockStore) addUser(u user.AdminUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
}

func (m *mockStore) setSMTP(s settings.SMTP) {
	m.settings[settings.KeySMTPHost] = s.Host
	m.settings[settings.KeySMTPPort] = fmt.Sprint(s.Port)
	m.settings[settings.KeySMTPUser] = s.User
	m.settings[settings.KeySMTPPassword] = s.Password
}

func (m *mockStore) tenant(id int64) tenant.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tenants[id]
}

func (m *mockStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.tenants))
	for id := range m.tenants {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *mockStore) FindExpirableTenants(_ context.Context, now time.Time) ([]tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []tenant.Tenant
	for _, id := range m.sortedIDs() {
		if t := m.tenants[id]; t.CanExpire(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockStore) ExpireTenant(_ context.Context, id int64, now time.Time) (tenant.Expired, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expireErrFor == id {
		return tenant.Expired{}, false, fmt.Errorf("expire tenant %d: connection reset", id)
	}
	t, ok := m.tenants[id]
	if !ok || !t.CanExpire(now) {
		return tenant.Expired{}, false, nil
	}
	t.Status = tenant.StatusExpired
	for i := range m.users {
		if m.users[i].TenantID != nil && *m.users[i].TenantID == id {
			m.users[i].Deactivate()
		}
	}
	return tenant.Expired{ID: t.ID, Name: t.Name, OwnerEmail: t.OwnerEmail, PriorEndDate: *t.SubscriptionEndDate}, true, nil
}

func (m *mockStore) FindTenantsInWindow(_ context.Context, w notification.Window) ([]notification.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.windowErr != nil {
		return nil, m.windowErr
	}
	var out []notification.Candidate
	for _, id := range m.sortedIDs() {
		t := m.tenants[id]
		if t.Status != tenant.StatusActive || t.OwnerEmail == "" || t.SubscriptionEndDate == nil || !w.Contains(*t.SubscriptionEndDate) {
			continue
		}
		c := notification.Candidate{
			TenantID:   t.ID,
			TenantName: t.Name,
			Email:      t.OwnerEmail,
			EndDate:    *t.SubscriptionEndDate,
		}
		if tp, ok := m.tariffs[t.TariffID]; ok {
			c.TariffName = tp.Name
			c.RenewalPrice = tp.RenewalPrice
			c.Period = tp.Period
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockStore) GetSubscription(_ context.Context, id int64) (*subscription.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	src := &subscription.Source{TenantID: t.ID, TenantName: t.Name, TariffID: t.TariffID, EndDate: t.SubscriptionEndDate}
	if tp, ok := m.tariffs[t.TariffID]; ok {
		src.TariffName = tp.Name
		src.RenewalPrice = tp.RenewalPrice
		src.Period = tp.Period
	}
	return src, nil
}

func (m *mockStore) GetSettings(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settingsReads++
	if m.settingsErr != nil {
		return nil, m.settingsErr
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.settings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mockStore) UpsertSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *mockStore) WasNotified(_ context.Context, id int64, leadDays int, endDate time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.log {
		c := m.log[i].outcome.Candidate
		if m.log[i].outcome.Sent() && c.TenantID == id && c.Threshold.Days == leadDays && c.EndDate.Equal(endDate) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) RecordAttempt(_ context.Context, runID string, o *notification.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, logEntry{runID: runID, outcome: *o})
	return nil
}

func (m *mockStore) CreateRun(_ context.Context, rec *run.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *rec)
	return nil
}

func (m *mockStore) FinishRun(_ context.Context, rec *run.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == rec.ID {
			m.runs[i] = *rec
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ListRuns(_ context.Context, limit int) ([]run.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]run.Record, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *mockStore) TryLock(_ context.Context, _ int64) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return nil, false, m.lockErr
	}
	if m.locked {
		return nil, false, nil
	}
	m.locked = true
	return func() {
		m.mu.Lock()
		m.locked = false
		m.mu.Unlock()
	}, true, nil
}

func (m *mockStore) Ping(context.Context) error { return nil }

// fakeTransport records messages instead of sending them.
type fakeTransport struct {
	mu      sync.Mutex
	creds   bool
	sent    []notification.Message
	used    []settings.SMTP
	calls   int
	err     error
	errFor  map[string]error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{Credentials: f.creds}
}

func (f *fakeTransport) Send(ctx context.Context, s settings.SMTP, msg notification.Message) error {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errFor[msg.To]; err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	f.used = append(f.used, s)
	return nil
}

func (f *fakeTransport) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.To)
	}
	return out
}

// mockQueue records published subjects.
type mockQueue struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.subjects = append(q.subjects, subject)
	q.payloads = append(q.payloads, data)
	return nil
}

func (q *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

func (q *mockQueue) count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, s := range q.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

// memCache is a map-backed cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt64(v int64) *int64        { return &v }
