package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// IncrOptions holds flags for the incr command.
type IncrOptions struct {
	*RootOptions
	Delta int64
	At    string
}

// NewIncrCommand creates the incr command.
func NewIncrCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IncrOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "incr <subject> <scope> <counter-type>",
		Short: "Increment a counter for a subject within a scope",
		Long: `Increment a counter for a subject within a scope.

The increment lands in the fine tier under the current counting day
(days roll over at 08:00 UTC). The counter type must be declared in
the configuration.

Example:
  tally incr user-42 guild-7 message
  tally incr user-42 guild-7 reaction --delta 3`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIncr(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Delta, "delta", 1, "amount to add (must be positive)")
	cmd.Flags().StringVar(&opts.At, "at", "", "event time as RFC 3339 (defaults to now)")

	return cmd
}

func runIncr(opts *IncrOptions, subjectID, scopeID, counterType string, cmd *cobra.Command) error {
	ts, err := resolveAt(opts.At)
	if err != nil {
		return err
	}

	st, cfg, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if !containsString(cfg.CounterTypes, counterType) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown counter type %q: configured types are %v", counterType, cfg.CounterTypes))
	}

	ctx := cmd.Context()
	if err := st.EnsureSubject(ctx, subjectID); err != nil {
		return WrapExitError(ExitFailure, "registering subject", err)
	}
	if err := st.EnsureScope(ctx, scopeID); err != nil {
		return WrapExitError(ExitFailure, "registering scope", err)
	}
	if err := st.Increment(ctx, subjectID, scopeID, counterType, ts, opts.Delta); err != nil {
		return WrapExitError(ExitFailure, "incrementing counter", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(map[string]any{
			"subject_id":   subjectID,
			"scope_id":     scopeID,
			"counter_type": counterType,
			"delta":        opts.Delta,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s +%d\n", subjectID, scopeID, counterType, opts.Delta)
	return nil
}

// resolveAt parses the --at flag, defaulting to the current time.
func resolveAt(at string) (time.Time, error) {
	if at == "" {
		return time.Now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "invalid --at time", err)
	}
	return ts, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
