package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/conciergehq/lifecycle/internal/port/messagequeue"
)

// eventPublisher publishes lifecycle events. A nil queue disables publishing.
// Failures are logged and never affect the run.
type eventPublisher struct {
	queue messagequeue.Queue
}

func (p eventPublisher) publish(ctx context.Context, subject string, payload any) {
	if p.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return
	}
	if err := p.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}
