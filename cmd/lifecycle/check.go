package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/conciergehq/lifecycle/internal/domain/notification"
	"github.com/conciergehq/lifecycle/internal/domain/run"
)

// runCheck executes a single lifecycle run and prints its summary. It exits
// non-zero if the run failed.
func runCheck(args []string) error {
	cfg, flush, err := loadConfig(flag.NewFlagSet("check", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("subscription check: %w", err)
	}
	return printReport(rep, rep.Summarize())
}

func printReport(rep *run.Report, s run.Summary) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "RUN\t%s\n", s.RunID)
	_, _ = fmt.Fprintf(w, "EXPIRED\t%d\n", s.ExpiredCount)
	_, _ = fmt.Fprintf(w, "SENT\t%d\n", s.NotificationsSent)
	_, _ = fmt.Fprintf(w, "FAILED\t%d\n", rep.Count(notification.StatusFailed))
	_, _ = fmt.Fprintf(w, "SKIPPED\t%d\n", rep.Count(notification.StatusSkipped))

	if len(rep.Expired) > 0 {
		_, _ = fmt.Fprintln(w, "\nTENANT_ID\tNAME\tEMAIL")
		for _, e := range s.ExpiredTenants {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", e.ID, e.Name, e.Email)
		}
	}
	if len(rep.Outcomes) > 0 {
		_, _ = fmt.Fprintln(w, "\nTENANT_ID\tEMAIL\tTYPE\tSTATUS\tERROR")
		for i := range rep.Outcomes {
			o := &rep.Outcomes[i]
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				o.Candidate.TenantID, o.Candidate.Email, o.Candidate.Threshold.Type, o.Status, o.Error)
		}
	}
	return w.Flush()
}
