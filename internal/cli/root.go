// Package cli implements the querycache command line.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go-query-cache/internal/config"
	"go-query-cache/internal/logging"
	"go-query-cache/internal/store"
)

// rootOptions are the global flags. Non-empty values override the config
// file and environment.
type rootOptions struct {
	configPath string
	logLevel   string
	debug      bool
	dataDir    string
	sourceType string
	sourceDSN  string
}

// app carries state resolved by the root command to its subcommands.
type app struct {
	opts   rootOptions
	cfg    config.Config
	logger zerolog.Logger
}

// NewRootCmd creates the root command with the fetch and history
// subcommands.
func NewRootCmd(ver string) *cobra.Command {
	a := &app{cfg: config.Default(), logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "querycache",
		Short: "Run analytical queries through a local file cache",
		Long: "querycache runs SQL against a remote source and keeps each result in a CSV file.\n" +
			"Later runs read the file instead of querying the source again, unless --refresh is given.",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.opts.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&a.opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&a.opts.debug, "debug", false, "enable debug logging")
	pf.StringVar(&a.opts.dataDir, "data-dir", "", "directory holding cache files and the fetch history")
	pf.StringVar(&a.opts.sourceType, "source", "", "source type (postgres, pgx, mysql, sqlite, http)")
	pf.StringVar(&a.opts.sourceDSN, "dsn", "", "source DSN or HTTP endpoint")

	cmd.AddCommand(newFetchCmd(a), newHistoryCmd(a))
	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}

	if a.opts.dataDir != "" {
		cfg.DataDir = a.opts.dataDir
	}
	if a.opts.sourceType != "" {
		cfg.Source.Type = a.opts.sourceType
	}
	if a.opts.sourceDSN != "" {
		cfg.Source.DSN = a.opts.sourceDSN
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if a.opts.debug {
		cfg.Log.Level = zerolog.LevelDebugValue
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.Log, cmd.ErrOrStderr())
	a.logger.Debug().
		Str("data_dir", cfg.DataDir).
		Str("source", cfg.Source.Type).
		Msg("configuration loaded")
	return nil
}

// openHistory opens the history database, creating its directory.
func (a *app) openHistory() (*store.Store, error) {
	path := a.cfg.HistoryPath()
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	return store.Open(path)
}
