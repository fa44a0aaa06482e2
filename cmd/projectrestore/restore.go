package main

import (
	"fmt"
	"time"

	"github.com/projectvault/projectrestore/internal/restore"
	"github.com/spf13/cobra"
)

var (
	restoreArchive      string
	restoreDest         string
	restoreStagingDir   string
	restoreChecksums    string
	restoreMaxFiles     int64
	restoreMaxBytes     int64
	restoreAllowPax     bool
	restoreAllowSparse  bool
	restoreDryRun       bool
	restoreKeepBackup   bool
	restoreLockFile     string
	restoreStaleSeconds int64
)

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a snapshot archive onto the filesystem",
		Long: `Restore a snapshot archive into the destination directory. The archive
is extracted into a fresh staging directory first, with every entry validated
against the zero-trust policy (no symlinks, hardlinks, devices, fifos, or
escaping paths) and charged against the configured file/byte ceilings. Only
after a fully successful extraction is the destination replaced, via renames
on the same filesystem, so observers see either the old tree or the new one.

If --archive names a directory, the newest snapshot archive inside it is
restored. Use --dry-run to validate an archive without touching the
destination.`,
		Example: `  projectrestore restore --archive snapshot.tar.gz --dest /srv/project
  projectrestore restore --archive /var/backups/project --dest /srv/project
  projectrestore restore --archive snapshot.tar.zst --dest /srv/project --checksums SHA256SUMS
  projectrestore restore --archive snapshot.tgz --dest /srv/project --max-bytes 1073741824 --dry-run`,
		RunE: restoreRun,
	}

	cmd.Flags().StringVar(&restoreArchive, "archive", "", "snapshot archive file, or directory of snapshots (required)")
	cmd.Flags().StringVar(&restoreDest, "dest", "", "destination directory (defaults to restore.destination from config)")
	cmd.Flags().StringVar(&restoreStagingDir, "staging-dir", "", "override staging directory (same filesystem as destination)")
	cmd.Flags().StringVar(&restoreChecksums, "checksums", "", "sha256sum-style manifest to verify the archive against")
	cmd.Flags().Int64Var(&restoreMaxFiles, "max-files", 0, "abort if the archive holds more entries (0 = unlimited)")
	cmd.Flags().Int64Var(&restoreMaxBytes, "max-bytes", 0, "abort if extracted payload exceeds this many bytes (0 = unlimited)")
	cmd.Flags().BoolVar(&restoreAllowPax, "allow-pax", false, "apply pax extended records (e.g. sub-second timestamps) carried by entries")
	cmd.Flags().BoolVar(&restoreAllowSparse, "allow-sparse", false, "admit GNU/PAX sparse entries")
	cmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "validate and charge budgets without touching the destination")
	cmd.Flags().BoolVar(&restoreKeepBackup, "keep-backup", false, "retain the previous destination tree after the swap")
	cmd.Flags().StringVar(&restoreLockFile, "lock-file", "", "lock record path (defaults to <dest>.lock)")
	cmd.Flags().Int64Var(&restoreStaleSeconds, "stale-seconds", 0, "lock staleness threshold in seconds (defaults to config, then 3600)")

	cmd.MarkFlagRequired("archive")

	return cmd
}

func restoreRun(cmd *cobra.Command, args []string) error {
	opts, err := buildRestoreOptions(cmd)
	if err != nil {
		return err
	}

	restorer := restore.NewRestorer(globalJournal, logger)
	result, err := restorer.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	printRestoreResult(result)
	return nil
}

// buildRestoreOptions merges config file values with explicit flags;
// a flag that was set always wins.
func buildRestoreOptions(cmd *cobra.Command) (restore.Options, error) {
	opts := restore.Options{
		Archive:          restoreArchive,
		Destination:      globalCfg.Restore.Destination,
		StagingDir:       globalCfg.Restore.StagingDir,
		ChecksumManifest: restoreChecksums,
		Policy: restore.Policy{
			MaxFiles:    globalCfg.Policy.MaxFiles,
			MaxBytes:    globalCfg.Policy.MaxBytes,
			AllowPax:    globalCfg.Policy.AllowPax,
			AllowSparse: globalCfg.Policy.AllowSparse,
		},
		LockPath:       globalCfg.Lock.Path,
		LockStaleAfter: time.Duration(globalCfg.Lock.StaleSeconds) * time.Second,
		DryRun:         restoreDryRun,
		KeepBackup:     globalCfg.Restore.KeepBackup,
	}

	if restoreDest != "" {
		opts.Destination = restoreDest
	}
	if opts.Destination == "" {
		return opts, fmt.Errorf("no destination: pass --dest or set restore.destination in the config")
	}
	if restoreStagingDir != "" {
		opts.StagingDir = restoreStagingDir
	}
	if restoreLockFile != "" {
		opts.LockPath = restoreLockFile
	}
	if cmd.Flags().Changed("max-files") {
		opts.Policy.MaxFiles = restoreMaxFiles
	}
	if cmd.Flags().Changed("max-bytes") {
		opts.Policy.MaxBytes = restoreMaxBytes
	}
	if cmd.Flags().Changed("allow-pax") {
		opts.Policy.AllowPax = restoreAllowPax
	}
	if cmd.Flags().Changed("allow-sparse") {
		opts.Policy.AllowSparse = restoreAllowSparse
	}
	if cmd.Flags().Changed("keep-backup") {
		opts.KeepBackup = restoreKeepBackup
	}
	if cmd.Flags().Changed("stale-seconds") {
		if restoreStaleSeconds <= 0 {
			return opts, fmt.Errorf("--stale-seconds must be positive")
		}
		opts.LockStaleAfter = time.Duration(restoreStaleSeconds) * time.Second
	}

	return opts, nil
}

func printRestoreResult(result *restore.Result) {
	if result.DryRun {
		fmt.Printf("Dry-run results for %s:\n", result.Archive)
	} else {
		fmt.Printf("Restore results for %s:\n", result.Archive)
	}
	fmt.Printf("  Destination: %s\n", result.Destination)
	fmt.Printf("  Files restored: %d\n", result.FilesRestored)
	fmt.Printf("  Directories created: %d\n", result.DirsCreated)
	fmt.Printf("  Entries skipped: %d\n", result.FilesSkipped)
	fmt.Printf("  Bytes written: %s\n", formatBytes(result.BytesWritten))
	if result.BackupPath != "" {
		fmt.Printf("  Previous tree kept at: %s\n", result.BackupPath)
	}
	if len(result.Warnings) > 0 {
		fmt.Println("  Warnings:")
		for _, w := range result.Warnings {
			fmt.Printf("    - %s\n", w)
		}
	}
}
