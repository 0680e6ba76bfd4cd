package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/config"
	"github.com/tallybot/tally/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	At string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <subject> <log-type> <value>",
		Short: "Append an entry to a subject's bounded history log",
		Long: `Append an entry to a subject's bounded history log.

The log type must be declared in the configuration; its cap and dedup
policy apply atomically with the insert. With dedup enabled, a value
identical to the most recent entry is skipped.

Example:
  tally log user-42 presence online
  tally log user-42 avatar a3f9c2`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "event time as RFC 3339 (defaults to now)")

	return cmd
}

func runLog(opts *LogOptions, subjectID, logType, value string, cmd *cobra.Command) error {
	ts, err := resolveAt(opts.At)
	if err != nil {
		return err
	}

	st, cfg, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	logCfg, ok := findHistoryLog(cfg, logType)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown log type %q", logType))
	}

	ctx := cmd.Context()
	if err := st.EnsureSubject(ctx, subjectID); err != nil {
		return WrapExitError(ExitFailure, "registering subject", err)
	}

	stored, err := st.AppendHistory(ctx, subjectID, store.HistoryLog{
		Type:  logCfg.Type,
		Cap:   logCfg.Cap,
		Dedup: logCfg.Dedup,
	}, []byte(value), ts)
	if err != nil {
		return WrapExitError(ExitFailure, "appending history", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(map[string]any{
			"subject_id": subjectID,
			"log_type":   logType,
			"stored":     stored,
		})
	}
	if stored {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s stored\n", subjectID, logType)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s skipped (duplicate)\n", subjectID, logType)
	}
	return nil
}

func findHistoryLog(cfg *config.Config, logType string) (config.HistoryLog, bool) {
	for _, l := range cfg.HistoryLogs {
		if l.Type == logType {
			return l, true
		}
	}
	return config.HistoryLog{}, false
}
