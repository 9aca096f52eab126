package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/conciergehq/lifecycle/internal/adapter/postgres"
	"github.com/conciergehq/lifecycle/internal/domain/settings"
	"github.com/conciergehq/lifecycle/internal/service"
)

// runAdmin dispatches admin subcommands (migrate, migrate-status, set-smtp, hash-token).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	case "set-smtp":
		return runAdminSetSMTP(args[1:])
	case "hash-token":
		return runAdminHashToken(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: lifecycle admin <command> [options]

Commands:
  migrate          Apply pending migrations (or roll back with --down N)
  migrate-status   Show migration status
  set-smtp         Store SMTP credentials in the settings table
  hash-token       Print a bcrypt hash for server.trigger_token_hash
  help             Show this help message

Examples:
  lifecycle admin migrate
  lifecycle admin migrate --down 1
  lifecycle admin set-smtp --host smtp.yandex.ru --port 465 --user noreply@example.com
  lifecycle admin hash-token
`)
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	cfg, flush, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	defer flush()

	ctx := context.Background()
	if *down > 0 {
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	} else if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Database at migration version %d\n", v)
	return nil
}

func runAdminMigrateStatus(args []string) error {
	cfg, flush, err := loadConfig(flag.NewFlagSet("migrate-status", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer flush()

	return postgres.MigrationStatus(context.Background(), cfg.Postgres.DSN)
}

func runAdminSetSMTP(args []string) error {
	fs := flag.NewFlagSet("set-smtp", flag.ContinueOnError)
	host := fs.String("host", "", "SMTP host (required)")
	port := fs.Int("port", settings.DefaultSMTPPort, "SMTP port (465 implicit TLS, otherwise STARTTLS)")
	user := fs.String("user", "", "SMTP user, also the From address (required)")
	password := fs.String("password", "", "SMTP password (prompted if not provided)") //nolint:gosec // CLI flag
	cfg, flush, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	defer flush()

	if *host == "" || *user == "" {
		return fmt.Errorf("--host and --user are required")
	}

	pass := *password
	if pass == "" {
		pass, err = promptPassword("SMTP password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	svc := service.NewSettingsService(postgres.NewStore(pool), nil, 0)
	if err := svc.SetSMTP(ctx, settings.SMTP{Host: *host, Port: *port, User: *user, Password: pass}); err != nil {
		return fmt.Errorf("set smtp: %w", err)
	}

	fmt.Fprintf(os.Stderr, "SMTP settings saved for %s:%d\n", *host, *port)
	return nil
}

func runAdminHashToken(args []string) error {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	token := fs.String("token", "", "trigger token (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	t := *token
	if t == "" {
		var err error
		t, err = promptPassword("Trigger token: ")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
	}
	if t == "" {
		return fmt.Errorf("token must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(t), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

// promptPassword reads a secret from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
