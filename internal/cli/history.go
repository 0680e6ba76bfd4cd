package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history <subject> <log-type>",
		Short:         "List a subject's retained history entries, newest first",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], args[1], cmd)
		},
	}

	return cmd
}

// historyEntryView is the JSON shape of one history entry.
type historyEntryView struct {
	Value      string    `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

func runHistory(opts *HistoryOptions, subjectID, logType string, cmd *cobra.Command) error {
	st, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.History(cmd.Context(), subjectID, logType)
	if err != nil {
		return WrapExitError(ExitFailure, "reading history", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		views := make([]historyEntryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, historyEntryView{
				Value:      string(e.Value),
				RecordedAt: e.RecordedAt.UTC(),
			})
		}
		return out.Success(map[string]any{
			"subject_id": subjectID,
			"log_type":   logType,
			"entries":    views,
		})
	}
	renderHistory(cmd.OutOrStdout(), subjectID, logType, entries)
	return nil
}

func renderHistory(w io.Writer, subjectID, logType string, entries []store.HistoryEntry) {
	fmt.Fprintf(w, "%s history for %s (%d entries)\n", logType, subjectID, len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "  %s  %s\n", e.RecordedAt.UTC().Format(time.RFC3339), e.Value)
	}
}
