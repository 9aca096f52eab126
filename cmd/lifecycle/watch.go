package main

import (
	"context"
	"flag"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfnats "github.com/conciergehq/lifecycle/internal/adapter/nats"
	"github.com/conciergehq/lifecycle/internal/logger"
	"github.com/conciergehq/lifecycle/internal/port/messagequeue"
)

// runWatch prints lifecycle events as they arrive until interrupted.
func runWatch(args []string) error {
	cfg, flush, err := loadConfig(flag.NewFlagSet("watch", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer flush()

	if cfg.NATS.URL == "" {
		return errors.New("nats.url is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q, err := cfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	cancel, err := q.Subscribe(ctx, messagequeue.SubjectWildcard, func(ctx context.Context, subject string, data []byte) error {
		fmt.Printf("%s\trun=%s\t%s\n", subject, logger.RunID(ctx), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()

	<-ctx.Done()
	return nil
}
