package restore

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// archiveReader is the decompressed byte stream of a snapshot archive
// plus whatever needs closing underneath it.
type archiveReader struct {
	io.Reader
	closers []io.Closer
}

func (r *archiveReader) Close() error {
	var first error
	// Close in reverse: decompressor before the file beneath it.
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openArchive opens the snapshot archive and wires up the
// decompression codec selected by the file suffix. Supported:
// .tar, .tar.gz/.tgz, .tar.zst/.tzst, .tar.xz/.txz.
func openArchive(path string) (*archiveReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tar"):
		return &archiveReader{Reader: f, closers: []io.Closer{f}}, nil

	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		return &archiveReader{Reader: zr, closers: []io.Closer{f, zr}}, nil

	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		return &archiveReader{Reader: zr, closers: []io.Closer{f, closerFunc(func() error {
			zr.Close()
			return nil
		})}}, nil

	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		return &archiveReader{Reader: xr, closers: []io.Closer{f}}, nil

	default:
		_ = f.Close()
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(path))
	}
}

type closerFunc func() error

func (fn closerFunc) Close() error { return fn() }

// archiveSuffixes mirrors the codec table in openArchive. Kept
// explicit so sidecar files like "snap.tar.gz.sha256" never match.
var archiveSuffixes = []string{
	".tar", ".tar.gz", ".tgz", ".tar.zst", ".tzst", ".tar.xz", ".txz",
}

func isArchiveName(name string) bool {
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// FindLatestArchive returns the newest snapshot archive in dir by
// modification time. Used when the archive argument names a directory
// of timestamped snapshots.
func FindLatestArchive(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading snapshot directory: %w", err)
	}

	var latest string
	var latestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isArchiveName(strings.ToLower(entry.Name())) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().UnixNano() > latestMod {
			latest = entry.Name()
			latestMod = info.ModTime().UnixNano()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("no snapshot archive found in %s", dir)
	}
	return filepath.Join(dir, latest), nil
}
