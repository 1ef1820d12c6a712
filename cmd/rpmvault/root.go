package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpmvault/rpmvault/internal/config"
	"github.com/rpmvault/rpmvault/internal/history"
	"github.com/rpmvault/rpmvault/internal/httpfetch"
	"github.com/rpmvault/rpmvault/internal/orchestrator"
)

var (
	// Global flags
	cfgPath   string
	dataDir   string
	logLevel  string
	logFormat string
	quiet     bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalHistory      *history.Store
	globalOrchestrator *orchestrator.Orchestrator
)

// shouldSkipConfig reports whether a command should skip config loading.
func shouldSkipConfig(cmdName string) bool {
	skip := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skip[cmdName]
}

// shouldSkipComponentInit reports whether a command should skip wiring up
// the history store and orchestrator.
func shouldSkipComponentInit(cmdName string) bool {
	skip := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skip[cmdName]
}

// initializeComponents opens the history store and builds the orchestrator
// from the loaded configuration.
func initializeComponents() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	if err := os.MkdirAll(globalCfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := globalCfg.HistoryDBPath
	if dbPath == "" {
		dbPath = filepath.Join(globalCfg.DataDir, "history.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating history db directory: %w", err)
	}
	st, err := history.New(dbPath, logger)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	globalHistory = st

	descriptors, skipped := globalCfg.Descriptors()
	for _, s := range skipped {
		logger.Warn("skipping incomplete repo config", "reason", s)
	}

	fetcher := httpfetch.NewClient(time.Duration(globalCfg.HTTPTimeoutSeconds) * time.Second)
	globalOrchestrator = orchestrator.New(descriptors, fetcher, globalCfg.MaxConcurrentDownloads, globalHistory, logger)

	logger.Info("components initialized", "repos", len(descriptors))
	return nil
}

// closeHistory closes the global history store connection.
func closeHistory() {
	if globalHistory != nil {
		if err := globalHistory.Close(); err != nil {
			logger.Error("closing history store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpmvault",
		Short: "Offline mirror synchronizer for RPM repositories",
		Long: `rpmvault keeps local mirrors of CentOS Vault, Docker CE, and EPEL
repositories in sync with their upstream sources. It detects upstream
changes, downloads and verifies new or changed packages, dedups content
across configured repos, and regenerates repository metadata when upstream
metadata is missing or inconsistent.`,
		Example: `  rpmvault sync
  rpmvault sync --repo centos-9-baseos,epel-9
  rpmvault status
  rpmvault validate --repo epel-9`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if cfgPath == "" {
				found, err := config.FindConfigFile()
				if err != nil {
					logger.Warn("config file not found, using defaults", "error", err)
				} else {
					cfgPath = found
				}
			}

			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				globalCfg = loaded
			} else {
				globalCfg = config.DefaultConfig()
			}

			if dataDir != "" {
				globalCfg.DataDir = dataDir
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath, "data_dir", globalCfg.DataDir)
			}

			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(); err != nil {
					return fmt.Errorf("initializing components: %w", err)
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeHistory()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override data directory")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	cmd.AddCommand(
		newSyncCmd(),
		newStatusCmd(),
		newValidateCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags.
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}
