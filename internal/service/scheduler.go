package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conciergehq/lifecycle/internal/config"
	"github.com/conciergehq/lifecycle/internal/domain"
	"github.com/conciergehq/lifecycle/internal/domain/run"
)

// Runner executes one lifecycle run.
type Runner interface {
	Run(ctx context.Context) (*run.Report, error)
}

// Scheduler triggers a run once a day at a fixed wall-clock time.
type Scheduler struct {
	runner Runner
	hour   int
	minute int
	loc    *time.Location
	now    func() time.Time
}

// NewScheduler creates a Scheduler from its configuration.
func NewScheduler(runner Runner, cfg config.Scheduler) (*Scheduler, error) {
	hour, minute, err := config.ParseDailyAt(cfg.DailyAt)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
	}
	return &Scheduler{runner: runner, hour: hour, minute: minute, loc: loc, now: time.Now}, nil
}

// NextRun returns the first scheduled instant strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.loc)
	}
	return next
}

// Start blocks, running the engine at each scheduled time until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		next := s.NextRun(s.now())
		slog.Info("next lifecycle run scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		_, err := s.runner.Run(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			slog.Info("scheduled run skipped, run already in progress")
		case err != nil && ctx.Err() == nil:
			slog.Error("scheduled lifecycle run failed", "error", err)
		}
	}
}
