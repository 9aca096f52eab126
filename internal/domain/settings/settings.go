// Package settings defines the global key/value settings read by the engine.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conciergehq/lifecycle/internal/domain"
)

// Setting keys for outbound mail.
const (
	KeySMTPHost     = "smtp_host"
	KeySMTPPort     = "smtp_port"
	KeySMTPUser     = "smtp_user"
	KeySMTPPassword = "smtp_password"
)

// SMTPKeys lists every key the dispatcher reads.
var SMTPKeys = []string{KeySMTPHost, KeySMTPPort, KeySMTPUser, KeySMTPPassword}

// DefaultSMTPPort is used when smtp_port is unset.
const DefaultSMTPPort = 465

// Setting is a single row of the default_settings table.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SMTP holds outbound mail credentials.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
}

// SMTPFromMap builds SMTP credentials from raw settings. Values are trimmed.
// A non-numeric port is a configuration error.
func SMTPFromMap(m map[string]string) (SMTP, error) {
	s := SMTP{
		Host:     strings.TrimSpace(m[KeySMTPHost]),
		Port:     DefaultSMTPPort,
		User:     strings.TrimSpace(m[KeySMTPUser]),
		Password: strings.TrimSpace(m[KeySMTPPassword]),
	}
	if raw := strings.TrimSpace(m[KeySMTPPort]); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			return s, fmt.Errorf("smtp_port %q: %w", raw, domain.ErrNotConfigured)
		}
		s.Port = p
	}
	return s, nil
}

// Complete reports whether host, user and password are all set.
func (s SMTP) Complete() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// ImplicitTLS reports whether the connection starts with TLS (port 465).
// Any other port connects in plaintext and upgrades with STARTTLS.
func (s SMTP) ImplicitTLS() bool {
	return s.Port == 465
}

// Addr returns host:port.
func (s SMTP) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}
