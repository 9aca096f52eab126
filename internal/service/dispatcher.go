package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/conciergehq/lifecycle/internal/adapter/otel"
	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
	"github.com/conciergehq/lifecycle/internal/port/database"
	"github.com/conciergehq/lifecycle/internal/port/notifier"
	"github.com/conciergehq/lifecycle/internal/resilience"
)

const defaultSendTimeout = 10 * time.Second

// SMTPSource supplies transport credentials.
type SMTPSource interface {
	SMTP(ctx context.Context) (settings.SMTP, error)
}

// DispatcherConfig bounds delivery.
type DispatcherConfig struct {
	SendTimeout        time.Duration
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// Dispatcher renders and sends one warning per candidate. Every candidate
// gets exactly one attempt and an outcome; no failure aborts the batch.
type Dispatcher struct {
	transport notifier.Transport
	creds     SMTPSource
	renderer  *notification.Renderer
	log       database.NotificationLog
	cfg       DispatcherConfig
	metrics   *cfotel.Metrics
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher. log may be nil.
func NewDispatcher(transport notifier.Transport, creds SMTPSource, renderer *notification.Renderer, log database.NotificationLog, cfg DispatcherConfig) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.BreakerMaxFailures < 1 {
		cfg.BreakerMaxFailures = 1
	}
	return &Dispatcher{
		transport: transport,
		creds:     creds,
		renderer:  renderer,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetMetrics attaches metric instruments.
func (d *Dispatcher) SetMetrics(m *cfotel.Metrics) { d.metrics = m }

// Dispatch attempts delivery for each candidate in order. If ctx is cancelled
// the remaining candidates are not attempted. Only failures to reach the mail
// server trip the breaker; a rejected recipient does not.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, candidates []notification.Candidate) []notification.Outcome {
	breaker := resilience.NewBreaker(d.cfg.BreakerMaxFailures, d.cfg.BreakerTimeout).
		WithNeutral(func(err error) bool {
			return errors.Is(err, domain.ErrNotConfigured) ||
				errors.Is(err, notifier.ErrRejected) ||
				errors.Is(err, context.Canceled)
		})

	outcomes := make([]notification.Outcome, 0, len(candidates))
	for i := range candidates {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "dispatch interrupted", "remaining", len(candidates)-i, "error", ctx.Err())
			break
		}
		o := d.dispatchOne(ctx, breaker, &candidates[i])
		d.record(ctx, runID, &o)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (d *Dispatcher) dispatchOne(ctx context.Context, breaker *resilience.Breaker, c *notification.Candidate) notification.Outcome {
	ctx, span := cfotel.StartDispatchSpan(ctx, c.TenantID, string(c.Threshold.Type))
	defer span.End()

	o := notification.Outcome{Candidate: *c}
	finish := func(status notification.Status, err error) notification.Outcome {
		o.Status = status
		o.At = d.now()
		if err != nil {
			o.Error = err.Error()
			span.SetStatus(codes.Error, o.Error)
		}
		span.SetAttributes(attribute.String("notification.status", string(status)))
		return o
	}

	msg, err := d.renderer.Render(c)
	if err != nil {
		slog.ErrorContext(ctx, "render warning", "tenant_id", c.TenantID, "error", err)
		return finish(notification.StatusFailed, err)
	}

	var creds settings.SMTP
	if d.transport.Capabilities().Credentials {
		creds, err = d.creds.SMTP(ctx)
		switch {
		case errors.Is(err, domain.ErrNotConfigured):
			slog.WarnContext(ctx, "smtp settings invalid, warning skipped", "tenant_id", c.TenantID, "error", err)
			return finish(notification.StatusSkipped, err)
		case err != nil:
			slog.ErrorContext(ctx, "read smtp settings", "tenant_id", c.TenantID, "error", err)
			return finish(notification.StatusFailed, err)
		case !creds.Complete():
			slog.WarnContext(ctx, "smtp settings incomplete, warning skipped", "tenant_id", c.TenantID)
			return finish(notification.StatusSkipped, fmt.Errorf("smtp credentials: %w", domain.ErrNotConfigured))
		}
	}

	err = breaker.Execute(func() error {
		sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()
		return d.transport.Send(sctx, creds, msg)
	})
	if err != nil {
		slog.WarnContext(ctx, "send warning failed",
			"tenant_id", c.TenantID,
			"email", c.Email,
			"type", c.Threshold.Type,
			"breaker", breaker.State(),
			"error", err,
		)
		return finish(notification.StatusFailed, err)
	}

	slog.InfoContext(ctx, "expiration warning sent",
		"tenant_id", c.TenantID,
		"email", c.Email,
		"days_left", c.Threshold.Days,
	)
	return finish(notification.StatusSent, nil)
}

func (d *Dispatcher) record(ctx context.Context, runID string, o *notification.Outcome) {
	if d.metrics != nil {
		d.metrics.Notifications.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(o.Status)),
			attribute.String("type", string(o.Candidate.Threshold.Type)),
		))
	}
	if d.log == nil {
		return
	}
	if err := d.log.RecordAttempt(ctx, runID, o); err != nil {
		slog.ErrorContext(ctx, "record notification outcome", "tenant_id", o.Candidate.TenantID, "error", err)
	}
}
