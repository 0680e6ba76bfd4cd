package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tallybot/tally/internal/config"
	"github.com/tallybot/tally/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	ConfigPath   string
	DatabasePath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tally CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Tiered counter aggregation and bounded history",
		Long: "tally keeps per-day counters, rolls them up into monthly and " +
			"all-time tiers on a schedule, and retains capped history logs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (built-in defaults when empty)")
	cmd.PersistentFlags().StringVar(&opts.DatabasePath, "db", "", "database path (overrides config)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewIncrCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewScoreCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd
}

// configureLogging installs the process-wide slog handler. Logs go to
// stderr so they never mix into command output.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig resolves the effective configuration from the --config
// and --db flags.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "loading config", err)
		}
		cfg = loaded
	}
	if opts.DatabasePath != "" {
		cfg.DatabasePath = opts.DatabasePath
	}
	return cfg, nil
}

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, *config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "opening database", err)
	}
	return st, cfg, nil
}
