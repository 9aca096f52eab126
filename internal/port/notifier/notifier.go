// Package notifier defines the mail transport port (interface) and capabilities.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
)

// ErrRejected marks a server reply refusing one recipient or message. The
// server itself is reachable and other deliveries may still succeed.
var ErrRejected = errors.New("message rejected")

// Capabilities declares what a transport needs and supports.
type Capabilities struct {
	// Credentials is true when Send needs complete SMTP settings.
	Credentials bool `json:"credentials"`
}

// Options configures a transport at construction.
type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Transport is the port interface for delivering one rendered message.
type Transport interface {
	// Name returns the unique identifier for this transport (e.g. "smtp", "log").
	Name() string

	// Capabilities returns what this transport requires.
	Capabilities() Capabilities

	// Send makes exactly one delivery attempt.
	Send(ctx context.Context, creds settings.SMTP, msg notification.Message) error
}
