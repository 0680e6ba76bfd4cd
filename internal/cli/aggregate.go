package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/store"
)

// AggregateOptions holds flags for the aggregate command.
type AggregateOptions struct {
	*RootOptions
	At string
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AggregateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "aggregate <month|year>",
		Short: "Run one rollup pass over the previous closed window",
		Long: `Run one rollup pass over the previous closed window.

A month rollup folds the previous month's per-day counters into the
monthly tier; a year rollup folds the previous year's monthly counters
into the all-time tier. The pass is one transaction and re-running it
over a consumed window is a no-op.

Example:
  tally aggregate month`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "rollup reference time as RFC 3339 (defaults to now)")

	return cmd
}

func runAggregate(opts *AggregateOptions, period string, cmd *cobra.Command) error {
	now, err := resolveAt(opts.At)
	if err != nil {
		return err
	}

	st, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	out.VerboseLog("rolling up %s relative to %s", period, now.UTC().Format(time.RFC3339))

	stats, err := st.Aggregate(cmd.Context(), store.Period(period), now)
	if err != nil {
		if store.IsConfigError(err) {
			return WrapExitError(ExitCommandError, "invalid period", err)
		}
		return WrapExitError(ExitFailure, "rollup failed", err)
	}

	if opts.Format == "json" {
		return out.Success(stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s rollup: window [%s, %s) groups=%d source_rows=%d\n",
		stats.Period,
		stats.WindowStart.UTC().Format(time.RFC3339),
		stats.WindowEnd.UTC().Format(time.RFC3339),
		stats.Groups, stats.SourceRows)
	return nil
}
