package restore

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/projectvault/projectrestore/internal/safety"
)

// extractStats counts what one extraction run materialized.
type extractStats struct {
	Files    int64
	Dirs     int64
	Bytes    int64
	Skipped  int64
	Warnings []string
}

// Extractor streams an untrusted archive into a fresh staging
// directory, applying the entry validator and the budgeter per entry.
type Extractor struct {
	policy Policy
	logger *slog.Logger
}

// NewExtractor creates an extractor bound to one restore policy.
func NewExtractor(policy Policy, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{policy: policy, logger: logger}
}

// Extract fills stagingDir with the archive's admitted entries. The
// staging directory must not exist yet; a leftover from a crashed run
// is an error, never merged into. On any failure or cancellation the
// staging directory is removed in full before the error is returned,
// so staging either holds exactly the accepted entries or nothing.
func (e *Extractor) Extract(ctx context.Context, archivePath, stagingDir string) (*extractStats, error) {
	if err := os.MkdirAll(filepath.Dir(stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating staging parent: %w", err)
	}
	if err := os.Mkdir(stagingDir, 0o700); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrStagingLeftover, stagingDir)
		}
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	stats, err := e.extractInto(ctx, archivePath, stagingDir)
	if err != nil {
		if rmErr := os.RemoveAll(stagingDir); rmErr != nil {
			e.logger.Warn("failed to clean up staging directory", "path", stagingDir, "error", rmErr)
		}
		return nil, err
	}
	return stats, nil
}

func (e *Extractor) extractInto(ctx context.Context, archivePath, stagingDir string) (*extractStats, error) {
	ar, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = ar.Close()
	}()

	budget := NewBudgeter(e.policy)
	stats := &extractStats{}
	tr := tar.NewReader(ar)

	for {
		// Cancellation is observed only at entry boundaries; a write in
		// progress always finishes or fails on its own.
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrInterrupted, context.Cause(ctx))
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}

		verdict := ValidateEntry(hdr, e.policy)
		if verdict.Action == ActionSkip {
			e.logger.Warn("skipping archive entry", "entry", hdr.Name, "reason", verdict.Reason)
			stats.Skipped++
			stats.Warnings = append(stats.Warnings, verdict.Reason)
			continue
		}

		// Charge before writing; overrun is bounded by this one entry.
		size := hdr.Size
		if hdr.Typeflag == tar.TypeDir {
			size = 0
		}
		if err := budget.Charge(size); err != nil {
			return nil, fmt.Errorf("entry %q: %w", hdr.Name, err)
		}

		destPath, err := safety.EnsureUnderRoot(stagingDir, filepath.Join(stagingDir, verdict.RelPath))
		if err != nil {
			// Unreachable after validation; treated as structural.
			return nil, fmt.Errorf("entry %q: %w", hdr.Name, err)
		}

		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(destPath, verdict.Mode); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", verdict.RelPath, err)
			}
			if err := os.Chmod(destPath, verdict.Mode); err != nil {
				return nil, fmt.Errorf("setting mode on %s: %w", verdict.RelPath, err)
			}
			stats.Dirs++
			continue
		}

		n, err := e.writeFile(destPath, verdict, tr)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", verdict.RelPath, err)
		}
		stats.Files++
		stats.Bytes += n
	}

	e.logger.Debug("extraction complete",
		"files", stats.Files, "dirs", stats.Dirs, "bytes", stats.Bytes, "skipped", stats.Skipped)
	return stats, nil
}

// writeFile streams one regular entry to disk. Content is copied
// straight from the tar reader, never buffered whole. Later entries
// may legitimately overwrite earlier ones, hence O_TRUNC.
func (e *Extractor) writeFile(destPath string, verdict Verdict, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating parent directory: %w", err)
	}

	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, verdict.Mode)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, err
	}

	// The open above is subject to the umask; restate the stripped
	// mode explicitly.
	if err := os.Chmod(destPath, verdict.Mode); err != nil {
		return n, fmt.Errorf("setting mode: %w", err)
	}
	if !verdict.ModTime.IsZero() {
		if err := os.Chtimes(destPath, verdict.ModTime, verdict.ModTime); err != nil {
			e.logger.Warn("failed to restore mtime", "entry", verdict.RelPath, "error", err)
		}
	}
	return n, nil
}
