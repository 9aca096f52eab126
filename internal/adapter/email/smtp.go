// Package email provides the SMTP and log mail transports.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
	"github.com/conciergehq/lifecycle/internal/port/notifier"
)

// DefaultTimeout bounds one delivery when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// ErrNoStartTLS is returned when a non-465 server does not offer STARTTLS.
var ErrNoStartTLS = errors.New("smtp: server does not support STARTTLS")

func init() {
	notifier.Register("smtp", func(opts notifier.Options) (notifier.Transport, error) {
		return NewSMTP(opts.Timeout), nil
	})
}

// SMTP delivers messages over SMTP. Port 465 uses implicit TLS; any other
// port connects in plaintext and must upgrade with STARTTLS.
type SMTP struct {
	timeout   time.Duration
	tlsConfig *tls.Config
	now       func() time.Time
}

// NewSMTP creates an SMTP transport. Dial, handshake, and I/O share one deadline.
func NewSMTP(timeout time.Duration) *SMTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SMTP{timeout: timeout, now: time.Now}
}

// Name returns "smtp".
func (s *SMTP) Name() string { return "smtp" }

// Capabilities reports that credentials are required.
func (s *SMTP) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{Credentials: true}
}

// Send delivers msg with one attempt. From is the SMTP user.
func (s *SMTP) Send(ctx context.Context, creds settings.SMTP, msg notification.Message) error {
	if !creds.Complete() {
		return fmt.Errorf("smtp credentials: %w", domain.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dial(ctx, creds)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", creds.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, creds.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer c.Close()

	if !creds.ImplicitTLS() {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return ErrNoStartTLS
		}
		if err := c.StartTLS(s.tlsConfigFor(creds.Host)); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if err := c.Auth(smtp.PlainAuth("", creds.User, creds.Password, creds.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(creds.User); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt %s: %w", msg.To, rejected(err))
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", rejected(err))
	}
	if _, err := w.Write(buildMessage(creds.User, msg, s.now())); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", rejected(err))
	}
	return c.Quit()
}

// rejected tags a server reply code with notifier.ErrRejected. I/O errors
// pass through unchanged.
func rejected(err error) error {
	var reply *textproto.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("%w: %w", notifier.ErrRejected, err)
	}
	return err
}

func (s *SMTP) dial(ctx context.Context, creds settings.SMTP) (net.Conn, error) {
	nd := &net.Dialer{}
	if creds.ImplicitTLS() {
		td := &tls.Dialer{NetDialer: nd, Config: s.tlsConfigFor(creds.Host)}
		return td.DialContext(ctx, "tcp", creds.Addr())
	}
	return nd.DialContext(ctx, "tcp", creds.Addr())
}

func (s *SMTP) tlsConfigFor(host string) *tls.Config {
	if s.tlsConfig != nil {
		cfg := s.tlsConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		return cfg
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}
