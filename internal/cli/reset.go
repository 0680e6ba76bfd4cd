package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/store"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Schema string
	Yes    bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the named schema, erasing all data",
		Long: `Drop and recreate the named schema, erasing all data.

Requires both --schema naming the schema explicitly and --yes. The
store refuses schema names it does not own.

Example:
  tally reset --schema tally --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema to reset (required)")
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the destructive reset")

	return cmd
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
	if opts.Schema == "" {
		return NewExitError(ExitCommandError, "--schema is required")
	}
	if !opts.Yes {
		return NewExitError(ExitCommandError, "refusing to reset without --yes")
	}

	st, _, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Reset(cmd.Context(), opts.Schema); err != nil {
		if store.IsConfigError(err) {
			return WrapExitError(ExitCommandError, "reset refused", err)
		}
		return WrapExitError(ExitFailure, "reset failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(map[string]any{"schema": opts.Schema, "reset": true})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema %s reset\n", opts.Schema)
	return nil
}
