package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/config"
	"github.com/tallybot/tally/internal/schedule"
	"github.com/tallybot/tally/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rollup scheduler until interrupted",
		Long: `Run the rollup scheduler until interrupted.

Registers every schedule from the configuration and fires its rollup
at the scheduled times. Rollups are idempotent, so a process that was
down across one or more scheduled times runs a single catch-up pass
on the next occurrence. SIGINT or SIGTERM stops the scheduler and
closes the database.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	st, cfg, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	sched := schedule.New(schedule.SystemClock)
	if err := registerSchedules(sched, cfg, st, schedule.SystemClock.Now); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go drainScheduleErrors(ctx, sched)

	for _, e := range sched.Entries() {
		slog.Info("schedule registered", "entry", e.Describe())
	}
	slog.Info("scheduler running", "database", cfg.DatabasePath, "schedules", len(sched.Entries()))

	<-ctx.Done()

	slog.Info("shutting down")
	sched.StopAll()
	return nil
}

// registerSchedules binds each configured schedule to its rollup job.
// now supplies the rollup reference time, normally the wall clock.
func registerSchedules(sched *schedule.Scheduler, cfg *config.Config, st *store.Store, now func() time.Time) error {
	for _, sc := range cfg.Schedules {
		period := store.Period(sc.Period)
		name := sc.Name
		job := func(ctx context.Context) error {
			stats, err := st.Aggregate(ctx, period, now().UTC())
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			slog.Info("scheduled rollup ran",
				"schedule", name,
				"period", stats.Period,
				"groups", stats.Groups,
				"source_rows", stats.SourceRows)
			return nil
		}
		if _, err := sched.Register(sc.Name, sc.Expression, sc.Timezone, job, sc.Autostart); err != nil {
			return WrapExitError(ExitCommandError, "registering schedule", err)
		}
	}
	return nil
}

// drainScheduleErrors logs callback failures until shutdown.
func drainScheduleErrors(ctx context.Context, sched *schedule.Scheduler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ee := <-sched.Errors():
			slog.Error("scheduled job failed",
				"schedule", ee.Name,
				"entry", ee.EntryID,
				"at", ee.At,
				"error", ee.Err)
		}
	}
}
