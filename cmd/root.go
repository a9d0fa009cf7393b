package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/sleeptrack/internal/config"
	"github.com/fakeyudi/sleeptrack/internal/format"
	"github.com/fakeyudi/sleeptrack/internal/night"
	"github.com/fakeyudi/sleeptrack/internal/tracker"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is built from --verbose and the configured log level.
var logger = slog.Default()

var (
	dbFlag  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sleeptrack",
	Short: "Track when you sleep and how well you slept",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		local, err := config.LoadLocal()
		if err != nil {
			return fmt.Errorf("loading local config: %w", err)
		}
		cfg = config.Merge(global, local)
		if err := config.ApplyEnv(&cfg); err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
		if dbFlag != "" {
			cfg.DBPath = dbFlag
		}

		logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, verbose)
		logger.Debug("configuration loaded", "db_path", cfg.DBPath, "export_format", cfg.ExportFormat)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal() {
			return cmd.Help()
		}
		return runUI(cmd)
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// databasePath resolves the configured database, defaulting to the XDG
// data directory.
func databasePath() (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return night.DefaultPath()
}

// openTracker opens the store and a tracker over it. The returned func
// releases both.
func openTracker(ctx context.Context) (*tracker.Tracker, func(), error) {
	path, err := databasePath()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving database path: %w", err)
	}
	store, err := night.NewStore(path)
	if err != nil {
		return nil, nil, err
	}
	tr, err := tracker.New(ctx, store,
		tracker.WithFormatter(format.Text{Layout: cfg.DateLayout}),
		tracker.WithLogger(logger),
	)
	if err != nil {
		tr.Close()
		store.Close()
		return nil, nil, err
	}
	return tr, func() {
		tr.Close()
		if err := store.Close(); err != nil {
			logger.Warn("closing database", "path", path, "error", err)
		}
	}, nil
}

func isTerminal() bool {
	return term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stdout.Fd())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "path to the sleep database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}
