package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lifecycle"

// Metrics holds all lifecycle engine metric instruments.
type Metrics struct {
	RunsStarted     metric.Int64Counter
	RunsCompleted   metric.Int64Counter
	RunsFailed      metric.Int64Counter
	RunsRejected    metric.Int64Counter
	TenantsExpired  metric.Int64Counter
	Notifications   metric.Int64Counter
	RunDuration     metric.Float64Histogram
	SettingsLookups metric.Int64Counter
}

// NewMetrics creates all metric instruments from the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("lifecycle.runs.started",
		metric.WithDescription("Number of lifecycle runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("lifecycle.runs.completed",
		metric.WithDescription("Number of lifecycle runs completed"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("lifecycle.runs.failed",
		metric.WithDescription("Number of lifecycle runs aborted by an error"))
	if err != nil {
		return nil, err
	}

	m.RunsRejected, err = meter.Int64Counter("lifecycle.runs.rejected",
		metric.WithDescription("Number of runs rejected because another run held the lock"))
	if err != nil {
		return nil, err
	}

	m.TenantsExpired, err = meter.Int64Counter("lifecycle.tenants.expired",
		metric.WithDescription("Number of tenants transitioned to expired"))
	if err != nil {
		return nil, err
	}

	m.Notifications, err = meter.Int64Counter("lifecycle.notifications",
		metric.WithDescription("Warning dispatch outcomes by status and type"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("lifecycle.run.duration_seconds",
		metric.WithDescription("Run duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.SettingsLookups, err = meter.Int64Counter("lifecycle.settings.lookups",
		metric.WithDescription("SMTP settings lookups by cache result"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
