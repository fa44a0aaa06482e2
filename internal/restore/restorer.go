// Package restore implements the archive-validation-and-atomic-restore
// engine: zero-trust entry validation, budgeted streaming extraction
// into an isolated staging directory, and a crash-safe rename swap
// into the live destination, all guarded by a cross-process lock.
package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/projectvault/projectrestore/internal/journal"
	"github.com/projectvault/projectrestore/internal/lock"
)

// Options configures one restore run. Built once by the CLI layer and
// passed down; no component reads process-wide state.
type Options struct {
	// Archive is the snapshot archive, or a directory of snapshots in
	// which case the newest one is restored.
	Archive string
	// Destination is the live directory to replace.
	Destination string
	// StagingDir overrides the default staging path next to the
	// destination. Must be on the destination's filesystem.
	StagingDir string
	// ChecksumManifest enables integrity verification when non-empty.
	ChecksumManifest string

	Policy Policy

	// LockPath is the cross-process lock record location.
	LockPath string
	// LockStaleAfter is the record age beyond which a lock is
	// reclaimable.
	LockStaleAfter time.Duration

	// DryRun validates, charges budgets and stages writes, but never
	// touches the destination and retains nothing.
	DryRun bool
	// KeepBackup retains the previous destination tree after the swap.
	KeepBackup bool
}

// Restorer runs restore transactions. The journal is optional; a nil
// journal disables auditing.
type Restorer struct {
	journal *journal.Journal
	logger  *slog.Logger
}

// NewRestorer creates a restorer.
func NewRestorer(j *journal.Journal, logger *slog.Logger) *Restorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Restorer{journal: j, logger: logger}
}

// Run performs one complete restore: lock, verify, extract, swap,
// unlock. The lock is released and staging is cleaned up on every exit
// path, including cancellation.
func (r *Restorer) Run(ctx context.Context, opts Options) (*Result, error) {
	archivePath, err := resolveArchive(opts.Archive)
	if err != nil {
		return nil, err
	}
	if opts.Destination == "" {
		return nil, fmt.Errorf("destination is required")
	}
	dest, err := filepath.Abs(opts.Destination)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}

	lockPath := opts.LockPath
	if lockPath == "" {
		lockPath = dest + ".lock"
	}
	staleAfter := opts.LockStaleAfter
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}

	lk := lock.NewManager(lockPath, staleAfter, r.logger)
	if err := lk.Acquire(); err != nil {
		return nil, err
	}
	defer lk.Release()

	run := r.journalStart(archivePath, dest, opts.DryRun)

	result, err := r.runLocked(ctx, archivePath, dest, opts)
	r.journalFinish(run, result, err)
	return result, err
}

func (r *Restorer) runLocked(ctx context.Context, archivePath, dest string, opts Options) (*Result, error) {
	if opts.ChecksumManifest != "" {
		r.logger.Info("verifying archive checksum", "archive", archivePath, "manifest", opts.ChecksumManifest)
		if err := VerifyArchive(archivePath, opts.ChecksumManifest); err != nil {
			return nil, err
		}
	}

	stagingDir := opts.StagingDir
	if stagingDir == "" {
		stagingDir = stagingPathFor(dest)
	}
	stagingDir, err := filepath.Abs(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("resolving staging path: %w", err)
	}

	// A cross-device rename cannot be atomic; refuse before any work.
	if err := r.checkSameDevice(stagingDir, dest); err != nil {
		return nil, err
	}

	r.logger.Info("extracting archive into staging",
		"archive", archivePath, "staging", stagingDir, "dry_run", opts.DryRun)

	extractor := NewExtractor(opts.Policy, r.logger)
	stats, err := extractor.Extract(ctx, archivePath, stagingDir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Archive:       archivePath,
		Destination:   dest,
		DryRun:        opts.DryRun,
		FilesRestored: stats.Files,
		DirsCreated:   stats.Dirs,
		FilesSkipped:  stats.Skipped,
		BytesWritten:  stats.Bytes,
		Warnings:      stats.Warnings,
	}

	if opts.DryRun {
		if err := os.RemoveAll(stagingDir); err != nil {
			r.logger.Warn("failed to remove dry-run staging directory", "path", stagingDir, "error", err)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("dry-run staging left behind at %s: %v", stagingDir, err))
		}
		r.logger.Info("dry-run complete, destination untouched",
			"files", stats.Files, "skipped", stats.Skipped, "bytes", stats.Bytes)
		return result, nil
	}

	backupPath, err := swapIntoPlace(stagingDir, dest, r.logger)
	if err != nil {
		if rmErr := os.RemoveAll(stagingDir); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			r.logger.Warn("failed to clean up staging after swap failure", "path", stagingDir, "error", rmErr)
		}
		return nil, err
	}

	if backupPath != "" {
		if opts.KeepBackup {
			result.BackupPath = backupPath
		} else if rmErr := removeBackup(backupPath, r.logger); rmErr != nil {
			result.BackupPath = backupPath
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("previous tree left at %s: %v", backupPath, rmErr))
		}
	}

	r.logger.Info("restore complete",
		"destination", dest, "files", stats.Files, "dirs", stats.Dirs,
		"skipped", stats.Skipped, "bytes", stats.Bytes)
	return result, nil
}

// checkSameDevice verifies the staging parent and the destination
// parent share a filesystem before extraction begins.
func (r *Restorer) checkSameDevice(stagingDir, dest string) error {
	destParent := filepath.Dir(dest)
	if err := os.MkdirAll(destParent, 0o755); err != nil {
		return fmt.Errorf("creating destination parent: %w", err)
	}
	stagingParent := filepath.Dir(stagingDir)
	if err := os.MkdirAll(stagingParent, 0o755); err != nil {
		return fmt.Errorf("creating staging parent: %w", err)
	}

	same, err := sameDevice(stagingParent, destParent)
	if err != nil {
		return err
	}
	if !same {
		return fmt.Errorf("%w: staging under %s, destination under %s",
			ErrCrossDevice, stagingParent, destParent)
	}
	return nil
}

// resolveArchive accepts either an archive file or a directory of
// snapshots, picking the newest snapshot in the latter case.
func resolveArchive(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("archive path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("archive not found: %s: %w", path, err)
	}
	if info.IsDir() {
		latest, err := FindLatestArchive(path)
		if err != nil {
			return "", err
		}
		return filepath.Abs(latest)
	}
	return filepath.Abs(path)
}

func (r *Restorer) journalStart(archive, dest string, dryRun bool) *journal.Run {
	if r.journal == nil {
		return nil
	}
	run := &journal.Run{
		Archive:     archive,
		Destination: dest,
		DryRun:      dryRun,
		StartTime:   time.Now(),
		Status:      "running",
	}
	if err := r.journal.CreateRun(run); err != nil {
		r.logger.Warn("failed to record restore run", "error", err)
		return nil
	}
	return run
}

func (r *Restorer) journalFinish(run *journal.Run, result *Result, runErr error) {
	if r.journal == nil || run == nil {
		return
	}
	run.EndTime = time.Now()
	switch {
	case runErr == nil:
		run.Status = "completed"
	case errors.Is(runErr, ErrInterrupted):
		run.Status = "interrupted"
		run.ErrorMessage = runErr.Error()
	default:
		run.Status = "failed"
		run.ErrorMessage = runErr.Error()
	}
	if result != nil {
		run.FilesRestored = result.FilesRestored
		run.FilesSkipped = result.FilesSkipped
		run.BytesWritten = result.BytesWritten
	}
	if err := r.journal.FinishRun(run); err != nil {
		r.logger.Warn("failed to finalize restore run record", "error", err)
	}
}
