package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/store"
)

// ScoreOptions holds flags for the score command.
type ScoreOptions struct {
	*RootOptions
	At string
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "score <subject> <scope>",
		Short: "Show the nine time-bucket counts for a subject in a scope",
		Long: `Show the nine time-bucket counts for a subject in a scope.

Counts are summed across counter types. Recent buckets read the fine
tier, older buckets the monthly tier, and all_time adds the rolled-up
total, so a score is consistent before and after a rollup runs.

Example:
  tally score user-42 guild-7`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "evaluation time as RFC 3339 (defaults to now)")

	return cmd
}

func runScore(opts *ScoreOptions, subjectID, scopeID string, cmd *cobra.Command) error {
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
	out.VerboseLog("evaluating score at %s", now.UTC().Format(time.RFC3339))

	report, err := st.Score(cmd.Context(), subjectID, scopeID, now)
	if err != nil {
		return WrapExitError(ExitFailure, "reading score", err)
	}

	if opts.Format == "json" {
		return out.Success(report)
	}
	renderScore(cmd.OutOrStdout(), report)
	return nil
}

// renderScore prints the report as an aligned two-column table.
func renderScore(w io.Writer, report *store.ScoreReport) {
	fmt.Fprintf(w, "score for %s in %s\n", report.SubjectID, report.ScopeID)
	for _, name := range store.BucketNames {
		fmt.Fprintf(w, "  %-10s %d\n", name, report.Bucket(name))
	}
}
