package email

import (
	"context"
	"log/slog"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
	"github.com/conciergehq/lifecycle/internal/port/notifier"
)

func init() {
	notifier.Register("log", func(opts notifier.Options) (notifier.Transport, error) {
		return NewLog(opts.Logger), nil
	})
}

// Log writes messages to the logger instead of sending them. For development.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log transport. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Name returns "log".
func (l *Log) Name() string { return "log" }

// Capabilities reports that no credentials are needed.
func (l *Log) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{}
}

// Send logs the message.
func (l *Log) Send(ctx context.Context, _ settings.SMTP, msg notification.Message) error {
	l.logger.InfoContext(ctx, "email (log transport)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
