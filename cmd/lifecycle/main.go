package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/conciergehq/lifecycle/internal/adapter/http"
	cfotel "github.com/conciergehq/lifecycle/internal/adapter/otel"
	"github.com/conciergehq/lifecycle/internal/config"
	"github.com/conciergehq/lifecycle/internal/logger"
	"github.com/conciergehq/lifecycle/internal/middleware"
	"github.com/conciergehq/lifecycle/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// dispatch selects the subcommand; serve is the default.
func dispatch(args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(args)
	case "check":
		return runCheck(args)
	case "watch":
		return runWatch(args)
	case "admin":
		return runAdmin(args)
	case "help", "-h", "--help":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: lifecycle <command> [options]

Commands:
  serve    Run the HTTP trigger server (default)
  check    Run one lifecycle pass and print the summary
  watch    Print lifecycle events from NATS
  admin    Administrative commands (see "lifecycle admin help")
  help     Show this help message

Every command accepts -config <path> (default %s).
`, config.DefaultConfigFile)
}

// loadConfig adds the shared -config flag to fs, parses args, loads
// configuration and installs the default logger. The returned func flushes
// the logger.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, func(), error) {
	path := fs.String("config", config.DefaultConfigFile, "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadFrom(*path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	return cfg, closer.Close, nil
}

func runServe(args []string) error {
	cfg, flush, err := loadConfig(flag.NewFlagSet("serve", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer flush()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"scheduler", cfg.Scheduler.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handlers := &cfhttp.Handlers{
		Lifecycle:     a.engine,
		Subscriptions: a.subscriptions,
		DB:            a.store,
	}
	if a.queue != nil {
		handlers.Queue = a.queue
	}

	r := chi.NewRouter()
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	cfhttp.MountRoutes(r, handlers, cfg.Server)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Engine.RunTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Scheduler.Enabled {
		sched, err := service.NewScheduler(a.engine, cfg.Scheduler)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Start(gctx) })
	}

	return g.Wait()
}
