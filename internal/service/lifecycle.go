// Package service contains the subscription lifecycle engine and its
// application services.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	cfotel "github.com/conciergehq/lifecycle/internal/adapter/otel"
	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/run"
	"github.com/conciergehq/lifecycle/internal/logger"
	"github.com/conciergehq/lifecycle/internal/port/database"
	"github.com/conciergehq/lifecycle/internal/port/messagequeue"
)

// runLockKey identifies the lifecycle run in pg advisory locks.
const runLockKey int64 = 0x4c_49_46_45 // "LIFE"

const defaultRunTimeout = 10 * time.Minute

// Engine executes lifecycle runs: scan, select, dispatch, aggregate.
type Engine struct {
	scanner    *ExpiryScanner
	selector   *WindowSelector
	dispatcher *Dispatcher
	locker     database.Locker
	runs       database.RunStore
	events     eventPublisher
	metrics    *cfotel.Metrics
	runTimeout time.Duration
	now        func() time.Time
	group      singleflight.Group
}

// NewEngine creates an Engine. runTimeout bounds one run; zero uses ten minutes.
func NewEngine(scanner *ExpiryScanner, selector *WindowSelector, dispatcher *Dispatcher, locker database.Locker, runs database.RunStore, runTimeout time.Duration) *Engine {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &Engine{
		scanner:    scanner,
		selector:   selector,
		dispatcher: dispatcher,
		locker:     locker,
		runs:       runs,
		runTimeout: runTimeout,
		now:        time.Now,
	}
}

// SetQueue enables event publishing.
func (e *Engine) SetQueue(q messagequeue.Queue) { e.events = eventPublisher{queue: q} }

// SetMetrics attaches metric instruments.
func (e *Engine) SetMetrics(m *cfotel.Metrics) {
	e.metrics = m
	e.dispatcher.SetMetrics(m)
}

// Run executes one lifecycle run. Concurrent calls in this process share a
// single run and its report. The run is detached from ctx cancellation so an
// abandoned caller does not cut a batch short; ctx only stops the wait.
// Returns domain.ErrRunInProgress if another instance holds the run lock.
func (e *Engine) Run(ctx context.Context) (*run.Report, error) {
	ch := e.group.DoChan("run", func() (any, error) {
		return e.execute(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		rep, _ := res.Val.(*run.Report)
		return rep, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// History returns recent runs, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]run.Record, error) {
	return e.runs.ListRuns(ctx, limit)
}

func (e *Engine) execute(ctx context.Context) (*run.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	report := &run.Report{ID: uuid.NewString(), StartedAt: e.now()}
	ctx = logger.WithRunID(ctx, report.ID)

	ctx, span := cfotel.StartRunSpan(ctx, report.ID)
	defer span.End()

	release, acquired, err := e.locker.TryLock(ctx, runLockKey)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		slog.InfoContext(ctx, "lifecycle run skipped, another run holds the lock")
		if e.metrics != nil {
			e.metrics.RunsRejected.Add(ctx, 1)
		}
		return nil, domain.ErrRunInProgress
	}
	defer release()

	if e.metrics != nil {
		e.metrics.RunsStarted.Add(ctx, 1)
	}
	rec := run.Record{ID: report.ID, StartedAt: report.StartedAt}
	if err := e.runs.CreateRun(ctx, &rec); err != nil {
		slog.WarnContext(ctx, "record run start", "error", err)
	}

	runErr := e.phases(ctx, report)
	report.FinishedAt = e.now()

	report.Finish(&rec, runErr)
	if err := e.runs.FinishRun(ctx, &rec); err != nil {
		slog.WarnContext(ctx, "record run finish", "error", err)
	}

	if e.metrics != nil {
		attrs := metric.WithAttributes(attribute.Bool("ok", runErr == nil))
		e.metrics.RunDuration.Record(ctx, report.FinishedAt.Sub(report.StartedAt).Seconds(), attrs)
		if runErr != nil {
			e.metrics.RunsFailed.Add(ctx, 1)
		} else {
			e.metrics.RunsCompleted.Add(ctx, 1)
		}
	}

	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
		slog.ErrorContext(ctx, "subscription check failed",
			"expired_count", len(report.Expired),
			"error", runErr,
		)
		return report, runErr
	}

	Aggregate(ctx, report)
	e.events.publish(ctx, messagequeue.SubjectRunCompleted, messagequeue.RunCompletedPayload{
		RunID:             report.ID,
		ExpiredCount:      rec.ExpiredCount,
		NotificationsSent: rec.NotificationsSent,
		FailedCount:       rec.FailedCount,
		SkippedCount:      rec.SkippedCount,
		DurationMs:        report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	return report, nil
}

// phases runs scan, select and dispatch against one clock reading. Expiry
// is committed before windows are evaluated.
func (e *Engine) phases(ctx context.Context, report *run.Report) error {
	now := e.now()

	sctx, span := cfotel.StartPhaseSpan(ctx, "scan")
	expired, err := e.scanner.Scan(sctx, now)
	span.End()
	report.Expired = expired
	for i := range expired {
		x := &expired[i]
		e.events.publish(ctx, messagequeue.SubjectTenantExpired, messagequeue.TenantExpiredPayload{
			RunID:        report.ID,
			TenantID:     x.ID,
			Name:         x.Name,
			Email:        x.OwnerEmail,
			PriorEndDate: x.PriorEndDate,
		})
	}
	if e.metrics != nil && len(expired) > 0 {
		e.metrics.TenantsExpired.Add(ctx, int64(len(expired)))
	}
	if err != nil {
		return err
	}

	sctx, span = cfotel.StartPhaseSpan(ctx, "select")
	candidates, err := e.selector.Select(sctx, now)
	span.End()
	if err != nil {
		return err
	}

	sctx, span = cfotel.StartPhaseSpan(ctx, "dispatch")
	report.Outcomes = e.dispatcher.Dispatch(sctx, report.ID, candidates)
	span.End()

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		if o.Status != notification.StatusSent {
			continue
		}
		e.events.publish(ctx, messagequeue.SubjectWarningSent, messagequeue.WarningSentPayload{
			RunID:    report.ID,
			TenantID: o.Candidate.TenantID,
			Email:    o.Candidate.Email,
			DaysLeft: o.Candidate.Threshold.Days,
			Type:     string(o.Candidate.Threshold.Type),
		})
	}
	return nil
}
