package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/tenant"
	"github.com/conciergehq/lifecycle/internal/domain/user"
	"github.com/conciergehq/lifecycle/internal/port/messagequeue"
)

func newTestEngine(store *mockStore, tr *fakeTransport, dedupe bool) *Engine {
	e := NewEngine(
		NewExpiryScanner(store),
		NewWindowSelector(store, store, dedupe),
		newTestDispatcher(store, tr, 3),
		store,
		store,
		time.Minute,
	)
	e.now = func() time.Time { return testNow }
	return e
}

// seedScenario adds an overdue tenant with two admins, a tenant three days
// out on a priced tariff, and a tenant outside every window.
func seedScenario(store *mockStore) {
	store.tariffs["pro"] = tenant.Tariff{ID: "pro", Name: "Профи", RenewalPrice: decimal.NewFromInt(999), Period: "месяц"}
	store.addTenant(tenant.Tenant{ID: 1, Name: "T1", OwnerEmail: "t1@example.com", Status: tenant.StatusActive, SubscriptionEndDate: ptrTime(testNow.Add(-time.Hour))})
	store.addTenant(tenant.Tenant{ID: 2, Name: "T2", OwnerEmail: "t2@example.com", Status: tenant.StatusActive, SubscriptionEndDate: ptrTime(testNow.Add(3*day + 2*time.Hour)), TariffID: "pro"})
	store.addTenant(tenant.Tenant{ID: 3, Name: "T3", OwnerEmail: "t3@example.com", Status: tenant.StatusActive, SubscriptionEndDate: ptrTime(testNow.Add(30 * day))})
	store.addUser(user.AdminUser{ID: 100, TenantID: ptrInt64(1), Username: "t1-owner", SubscriptionStatus: tenant.StatusActive, IsActive: true})
	store.addUser(user.AdminUser{ID: 101, TenantID: ptrInt64(1), Username: "t1-manager", SubscriptionStatus: tenant.StatusActive, IsActive: true})
	store.setSMTP(validSMTP)
}

func TestEngine_Run(t *testing.T) {
	store := newMockStore()
	seedScenario(store)
	tr := &fakeTransport{creds: true}
	q := &mockQueue{}
	e := newTestEngine(store, tr, true)
	e.SetQueue(q)

	rep, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := rep.Summarize()
	if !s.OK || s.ExpiredCount != 1 || s.NotificationsSent != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.ExpiredTenants[0].ID != 1 || s.ExpiredTenants[0].Email != "t1@example.com" {
		t.Errorf("expired tenants = %+v", s.ExpiredTenants)
	}
	n := s.Notifications[0]
	if n.TenantID != 2 || n.DaysLeft != 3 || n.Type != notification.TypeWarning3Days {
		t.Errorf("notifications = %+v", s.Notifications)
	}

	if store.tenant(1).Status != tenant.StatusExpired {
		t.Error("tenant 1 not expired")
	}
	for _, u := range store.users {
		if u.IsActive || u.SubscriptionStatus != tenant.StatusExpired {
			t.Errorf("admin %s not deactivated: %+v", u.Username, u)
		}
	}
	if store.tenant(3).Status != tenant.StatusActive {
		t.Error("tenant 3 changed state")
	}
	if len(tr.sent) != 1 || !strings.Contains(tr.sent[0].Body, "999.00") || !strings.Contains(tr.sent[0].Body, "Профи") {
		t.Errorf("unexpected messages %+v", tr.sent)
	}

	if got := q.count(messagequeue.SubjectTenantExpired); got != 1 {
		t.Errorf("expired events = %d, want 1", got)
	}
	if got := q.count(messagequeue.SubjectWarningSent); got != 1 {
		t.Errorf("warning events = %d, want 1", got)
	}
	if got := q.count(messagequeue.SubjectRunCompleted); got != 1 {
		t.Errorf("run events = %d, want 1", got)
	}

	runs, err := e.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != rep.ID || runs[0].FinishedAt == nil {
		t.Fatalf("unexpected history %+v", runs)
	}
	if runs[0].ExpiredCount != 1 || runs[0].NotificationsSent != 1 || runs[0].Error != "" {
		t.Errorf("unexpected record %+v", runs[0])
	}
	if store.locked {
		t.Error("run lock not released")
	}
}

func TestEngine_SummaryJSON(t *testing.T) {
	store := newMockStore()
	rep, err := newTestEngine(store, &fakeTransport{}, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := json.Marshal(rep.Summarize())
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	if !strings.Contains(body, `"expired_tenants":[]`) || !strings.Contains(body, `"notifications":[]`) {
		t.Errorf("empty lists must serialize as []: %s", body)
	}
}

func TestEngine_RepeatRunDedupe(t *testing.T) {
	tests := []struct {
		name   string
		dedupe bool
		want   int
	}{
		{"dedupe on", true, 1},
		{"dedupe off", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			seedScenario(store)
			tr := &fakeTransport{creds: true}
			e := newTestEngine(store, tr, tt.dedupe)

			for i := 0; i < 2; i++ {
				if _, err := e.Run(context.Background()); err != nil {
					t.Fatalf("run %d: %v", i, err)
				}
			}
			if len(tr.sent) != tt.want {
				t.Errorf("sent %d messages, want %d", len(tr.sent), tt.want)
			}
		})
	}
}

func TestEngine_SecondRunExpiresNothing(t *testing.T) {
	store := newMockStore()
	seedScenario(store)
	e := newTestEngine(store, &fakeTransport{creds: true}, true)

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	rep, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Expired) != 0 {
		t.Fatalf("expected nothing to expire on the second run, got %+v", rep.Expired)
	}
}

func TestEngine_RunInProgress(t *testing.T) {
	store := newMockStore()
	store.locked = true
	e := newTestEngine(store, &fakeTransport{}, true)

	_, err := e.Run(context.Background())
	if !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if len(store.runs) != 0 {
		t.Errorf("rejected run recorded in history")
	}
}

func TestEngine_LockError(t *testing.T) {
	store := newMockStore()
	store.lockErr = errors.New("too many connections")
	e := newTestEngine(store, &fakeTransport{}, true)

	if _, err := e.Run(context.Background()); !errors.Is(err, store.lockErr) {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestEngine_ScanErrorFailsRun(t *testing.T) {
	store := newMockStore()
	seedScenario(store)
	store.findErr = errors.New("connection reset by peer")
	tr := &fakeTransport{creds: true}
	q := &mockQueue{}
	e := newTestEngine(store, tr, true)
	e.SetQueue(q)

	rep, err := e.Run(context.Background())
	if !errors.Is(err, store.findErr) {
		t.Fatalf("expected scan error, got %v", err)
	}
	if rep == nil {
		t.Fatal("expected a partial report")
	}
	if tr.calls != 0 {
		t.Error("notifications dispatched after a failed scan")
	}
	if len(store.runs) != 1 || store.runs[0].Error == "" || store.runs[0].FinishedAt == nil {
		t.Errorf("failed run not recorded: %+v", store.runs)
	}
	if q.count(messagequeue.SubjectRunCompleted) != 0 {
		t.Error("run completed event published for a failed run")
	}
}

func TestEngine_PublishFailureDoesNotFailRun(t *testing.T) {
	store := newMockStore()
	seedScenario(store)
	e := newTestEngine(store, &fakeTransport{creds: true}, true)
	e.SetQueue(&mockQueue{err: errors.New("nats: connection closed")})

	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestEngine_ConcurrentCallsShareRun(t *testing.T) {
	store := newMockStore()
	seedScenario(store)
	tr := &fakeTransport{creds: true, entered: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEngine(store, tr, false)

	var (
		wg    sync.WaitGroup
		first string
		ferr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rep, err := e.Run(context.Background())
		ferr = err
		if rep != nil {
			first = rep.ID
		}
	}()

	<-tr.entered
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(tr.release)
	}()
	rep, err := e.Run(context.Background())
	wg.Wait()

	if err != nil || ferr != nil {
		t.Fatalf("Run errors: %v, %v", err, ferr)
	}
	if rep.ID != first {
		t.Errorf("concurrent calls got different runs: %s vs %s", rep.ID, first)
	}
	if len(store.runs) != 1 {
		t.Errorf("expected one run recorded, got %d", len(store.runs))
	}
	if len(tr.sent) != 1 {
		t.Errorf("expected one message, got %d", len(tr.sent))
	}
}

func TestEngine_CallerCancelDoesNotStopRun(t *testing.T) {
	store := newMockStore()
	seedScenario(store)
	tr := &fakeTransport{creds: true, entered: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEngine(store, tr, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Run(ctx)
		done <- err
	}()

	<-tr.entered
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(tr.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		finished := len(store.runs) == 1 && store.runs[0].FinishedAt != nil
		store.mu.Unlock()
		if finished {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish after the caller went away")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(tr.sentTo()) != 1 {
		t.Errorf("expected the warning to be delivered, got %v", tr.sentTo())
	}
}
