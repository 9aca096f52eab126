package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	cfnats "github.com/conciergehq/lifecycle/internal/adapter/nats"
	cfotel "github.com/conciergehq/lifecycle/internal/adapter/otel"
	"github.com/conciergehq/lifecycle/internal/adapter/postgres"
	"github.com/conciergehq/lifecycle/internal/adapter/ristretto"
	"github.com/conciergehq/lifecycle/internal/config"
	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/port/cache"
	"github.com/conciergehq/lifecycle/internal/port/notifier"
	"github.com/conciergehq/lifecycle/internal/service"
)

// app holds the wired infrastructure and services shared by serve and check.
type app struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	store         *postgres.Store
	queue         *cfnats.Queue
	engine        *service.Engine
	subscriptions *service.SubscriptionService

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// --- Telemetry ---
	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := shutdownOTEL(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	})
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	// --- PostgreSQL ---
	a.pool, err = postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.closers = append(a.closers, a.pool.Close)
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")
	a.store = postgres.NewStore(a.pool)

	// --- NATS (optional) ---
	if cfg.NATS.URL != "" {
		a.queue, err = cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := a.queue.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		})
	}

	// --- Settings cache ---
	var settingsCache cache.Cache
	if cfg.Settings.CacheTTL > 0 {
		rc, err := ristretto.New(cfg.Settings.CacheMaxCost)
		if err != nil {
			return nil, fmt.Errorf("settings cache: %w", err)
		}
		settingsCache = rc
		a.closers = append(a.closers, func() {
			slog.Debug("settings cache closed", "hit_ratio", rc.HitRatio())
			rc.Close()
		})
	}

	// --- Services ---
	transport, err := notifier.New(cfg.Engine.Transport, notifier.Options{
		Timeout: cfg.Engine.SendTimeout,
		Logger:  slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("transport: %w (available: %v)", err, notifier.Available())
	}

	settingsSvc := service.NewSettingsService(a.store, settingsCache, cfg.Settings.CacheTTL)
	settingsSvc.SetMetrics(metrics)

	dispatcher := service.NewDispatcher(transport, settingsSvc, notification.NewRenderer(cfg.Engine.RenewalURL), a.store, service.DispatcherConfig{
		SendTimeout:        cfg.Engine.SendTimeout,
		BreakerMaxFailures: cfg.Engine.BreakerMaxFailures,
		BreakerTimeout:     cfg.Engine.BreakerTimeout,
	})

	a.engine = service.NewEngine(
		service.NewExpiryScanner(a.store),
		service.NewWindowSelector(a.store, a.store, cfg.Engine.DedupeNotifications),
		dispatcher,
		a.store,
		a.store,
		cfg.Engine.RunTimeout,
	)
	a.engine.SetMetrics(metrics)
	if a.queue != nil {
		a.engine.SetQueue(a.queue)
	}
	a.subscriptions = service.NewSubscriptionService(a.store)

	slog.Info("lifecycle engine ready",
		"transport", transport.Name(),
		"dedupe", cfg.Engine.DedupeNotifications,
		"events", a.queue != nil,
	)
	return a, nil
}
