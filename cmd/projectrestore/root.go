package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/projectvault/projectrestore/internal/config"
	"github.com/projectvault/projectrestore/internal/journal"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	quiet     bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalJournal *journal.Journal
)

// initializeJournal opens the restore-run journal when one is
// configured. Commands work without it.
func initializeJournal() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalCfg.Journal.DBPath == "" {
		return nil
	}

	j, err := journal.Open(globalCfg.Journal.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	globalJournal = j
	return nil
}

// shouldSkipJournalInit checks if a command runs without the journal
func shouldSkipJournalInit(cmdName string) bool {
	skipCmds := map[string]bool{
		"help":   true,
		"config": true,
		"verify": true,
		"unlock": true,
	}
	return skipCmds[cmdName]
}

// closeJournal closes the global journal connection
func closeJournal() {
	if globalJournal != nil {
		if err := globalJournal.Close(); err != nil {
			logger.Error("failed to close journal", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projectrestore",
		Short: "Safely restore archived project snapshots",
		Long: `projectrestore restores a previously archived project snapshot onto the
filesystem. Archives are treated as untrusted input: every entry is validated
against a zero-trust policy, extraction is bounded by configurable file and
byte ceilings, and the destination is replaced atomically so it is never
observed half-restored. A cross-process lock keeps concurrent restores of the
same destination from interleaving.`,
		Example: `  projectrestore restore --archive snapshot.tar.gz --dest /srv/project
  projectrestore restore --archive /var/backups/project --dest /srv/project --dry-run
  projectrestore verify --archive snapshot.tar.zst --checksums SHA256SUMS
  projectrestore history --limit 10`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					logger.Debug("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath)
			}

			if !shouldSkipJournalInit(cmd.Name()) {
				if err := initializeJournal(); err != nil {
					return err
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeJournal()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	cmd.AddCommand(
		newRestoreCmd(),
		newVerifyCmd(),
		newHistoryCmd(),
		newUnlockCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
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
	if quiet {
		level = slog.LevelError
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

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help": true,
	}
	return skipConfigCmds[cmdName]
}
