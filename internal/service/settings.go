package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/conciergehq/lifecycle/internal/adapter/otel"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
	"github.com/conciergehq/lifecycle/internal/port/cache"
	"github.com/conciergehq/lifecycle/internal/port/database"
)

const smtpCacheKey = "settings:smtp"

// SettingsService reads SMTP credentials from the settings store through an
// optional cache.
type SettingsService struct {
	store   database.SettingsStore
	cache   cache.Cache
	ttl     time.Duration
	metrics *cfotel.Metrics
}

// NewSettingsService creates a SettingsService. cache may be nil.
func NewSettingsService(store database.SettingsStore, c cache.Cache, ttl time.Duration) *SettingsService {
	return &SettingsService{store: store, cache: c, ttl: ttl}
}

// SetMetrics attaches metric instruments.
func (s *SettingsService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// SMTP returns the current SMTP credentials. A malformed port yields an
// error wrapping domain.ErrNotConfigured.
func (s *SettingsService) SMTP(ctx context.Context) (settings.SMTP, error) {
	raw, err := s.rawSMTP(ctx)
	if err != nil {
		return settings.SMTP{}, err
	}
	return settings.SMTPFromMap(raw)
}

func (s *SettingsService) rawSMTP(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, smtpCacheKey)
		if err == nil && ok {
			var m map[string]string
			if json.Unmarshal(data, &m) == nil {
				s.countLookup(ctx, "hit")
				return m, nil
			}
		}
	}
	s.countLookup(ctx, "miss")

	m, err := s.store.GetSettings(ctx, settings.SMTPKeys)
	if err != nil {
		return nil, fmt.Errorf("load smtp settings: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := s.cache.Set(ctx, smtpCacheKey, data, s.ttl); err != nil {
				slog.WarnContext(ctx, "cache smtp settings", "error", err)
			}
		}
	}
	return m, nil
}

// SetSMTP stores SMTP credentials and drops the cached copy.
func (s *SettingsService) SetSMTP(ctx context.Context, smtp settings.SMTP) error {
	if smtp.Host == "" || smtp.User == "" {
		return fmt.Errorf("smtp host and user are required")
	}
	if smtp.Port <= 0 {
		smtp.Port = settings.DefaultSMTPPort
	}
	values := map[string]string{
		settings.KeySMTPHost:     smtp.Host,
		settings.KeySMTPPort:     fmt.Sprint(smtp.Port),
		settings.KeySMTPUser:     smtp.User,
		settings.KeySMTPPassword: smtp.Password,
	}
	for _, k := range settings.SMTPKeys {
		if err := s.store.UpsertSetting(ctx, k, values[k]); err != nil {
			return err
		}
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, smtpCacheKey)
	}
	return nil
}

func (s *SettingsService) countLookup(ctx context.Context, result string) {
	if s.metrics != nil {
		s.metrics.SettingsLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}
