package restore

import (
	"archive/tar"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func extractTo(t *testing.T, archive string, policy Policy) (*extractStats, string, error) {
	t.Helper()
	staging := filepath.Join(t.TempDir(), "staging")
	stats, err := NewExtractor(policy, nil).Extract(context.Background(), archive, staging)
	return stats, staging, err
}

func sampleEntries() []testEntry {
	return []testEntry{
		dirEntry("mydir/", 0o755),
		fileEntry("mydir/file.txt", "Hello, safe extract!", 0o644),
	}
}

func TestExtractBasic(t *testing.T) {
	for _, suffix := range []string{".tar", ".tar.gz", ".tar.zst", ".tar.xz"} {
		t.Run(suffix, func(t *testing.T) {
			archive := filepath.Join(t.TempDir(), "snap"+suffix)
			writeTestArchive(t, archive, sampleEntries())

			stats, staging, err := extractTo(t, archive, Policy{})
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if stats.Files != 1 || stats.Dirs != 1 || stats.Skipped != 0 {
				t.Errorf("stats = %+v", stats)
			}

			data, err := os.ReadFile(filepath.Join(staging, "mydir", "file.txt"))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != "Hello, safe extract!" {
				t.Errorf("content = %q", data)
			}
		})
	}
}

func TestExtractStripsDangerousModeBits(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, []testEntry{fileEntry("tool", "#!/bin/sh\n", 0o4755)})

	_, staging, err := extractTo(t, archive, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(staging, "tool"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&(os.ModeSetuid|os.ModeSetgid) != 0 {
		t.Errorf("dangerous bits survived: mode = %v", info.Mode())
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("perm = %o, want 755", info.Mode().Perm())
	}
}

func TestExtractSkipsDisallowedEntriesWithoutAborting(t *testing.T) {
	entries := []testEntry{
		fileEntry("good.txt", "ok", 0o644),
		{hdr: tar.Header{Name: "evil-link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}},
		{hdr: tar.Header{Name: "pipe", Typeflag: tar.TypeFifo, Mode: 0o644}},
		fileEntry("../escape.txt", "bad", 0o644),
		fileEntry("also-good.txt", "ok too", 0o644),
	}
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, entries)

	stats, staging, err := extractTo(t, archive, Policy{})
	if err != nil {
		t.Fatalf("skippable entries must not abort: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("files = %d, want 2", stats.Files)
	}
	if stats.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", stats.Skipped)
	}
	if len(stats.Warnings) != 3 {
		t.Errorf("warnings = %d, want 3", len(stats.Warnings))
	}

	// Nothing disallowed may exist anywhere under staging.
	if _, err := os.Lstat(filepath.Join(staging, "evil-link")); !errors.Is(err, os.ErrNotExist) {
		t.Error("symlink materialized")
	}
	if _, err := os.Lstat(filepath.Join(staging, "pipe")); !errors.Is(err, os.ErrNotExist) {
		t.Error("fifo materialized")
	}
	if _, err := os.Lstat(filepath.Join(filepath.Dir(staging), "escape.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("traversal entry escaped staging")
	}
}

func TestExtractPaxFormatArchive(t *testing.T) {
	// Every entry carries pax records (sub-second mtimes). Under the
	// default policy the records are inert but the files restore.
	entries := []testEntry{
		paxFileEntry("mydir/file.txt", "pax payload"),
		paxFileEntry("other.txt", "more"),
	}
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, entries)

	stats, staging, err := extractTo(t, archive, Policy{})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if stats.Files != 2 {
		t.Fatalf("files = %d, want 2 (pax-format entries must restore)", stats.Files)
	}
	if stats.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", stats.Skipped)
	}

	data, err := os.ReadFile(filepath.Join(staging, "mydir", "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pax payload" {
		t.Errorf("content = %q", data)
	}

	// Without allow_pax only the whole-second timestamp is applied.
	info, err := os.Stat(filepath.Join(staging, "other.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if info.ModTime().Nanosecond() != 0 {
		t.Errorf("pax sub-second mtime applied under default policy: %v", info.ModTime())
	}
}

func TestExtractRefusesLeftoverStaging(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, sampleEntries())

	staging := filepath.Join(t.TempDir(), "staging")
	if err := os.MkdirAll(staging, 0o700); err != nil {
		t.Fatal(err)
	}
	// Residue from a crashed run.
	if err := os.WriteFile(filepath.Join(staging, "residue"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewExtractor(Policy{}, nil).Extract(context.Background(), archive, staging)
	if !errors.Is(err, ErrStagingLeftover) {
		t.Fatalf("expected ErrStagingLeftover, got %v", err)
	}
	// The leftover must not be deleted either; it may hold evidence.
	if _, statErr := os.Stat(filepath.Join(staging, "residue")); statErr != nil {
		t.Errorf("pre-existing staging content was touched: %v", statErr)
	}
}

func TestExtractMaxFilesCeiling(t *testing.T) {
	entries := []testEntry{
		fileEntry("a.txt", "a", 0o644),
		fileEntry("b.txt", "b", 0o644),
		fileEntry("c.txt", "c", 0o644),
	}
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, entries)

	_, staging, err := extractTo(t, archive, Policy{MaxFiles: 2})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if _, statErr := os.Stat(staging); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("staging not removed after budget abort")
	}
}

func TestExtractMaxBytesCeiling(t *testing.T) {
	big := make([]byte, 2048)
	entries := []testEntry{
		fileEntry("small.txt", "small", 0o644),
		fileEntry("big.bin", string(big), 0o644),
	}
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, entries)

	_, staging, err := extractTo(t, archive, Policy{MaxBytes: 1024})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if _, statErr := os.Stat(staging); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("staging not removed after budget abort")
	}
}

func TestExtractCancellation(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, sampleEntries())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	staging := filepath.Join(t.TempDir(), "staging")
	_, err := NewExtractor(Policy{}, nil).Extract(ctx, archive, staging)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if _, statErr := os.Stat(staging); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("staging not removed after cancellation")
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "snap.tar")
	if err := os.WriteFile(archive, []byte("this is not a tar stream at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	staging := filepath.Join(t.TempDir(), "staging")
	_, err := NewExtractor(Policy{}, nil).Extract(context.Background(), archive, staging)
	if err == nil {
		t.Fatal("expected corrupt stream to abort")
	}
	if _, statErr := os.Stat(staging); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("staging not removed after structural failure")
	}
}

func TestExtractZeroLengthFile(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, []testEntry{fileEntry("zero.txt", "", 0o644)})

	stats, staging, err := extractTo(t, archive, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 1 {
		t.Errorf("files = %d", stats.Files)
	}
	data, err := os.ReadFile(filepath.Join(staging, "zero.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("zero-length file has %d bytes", len(data))
	}
}

func TestExtractLaterEntryOverwritesEarlier(t *testing.T) {
	entries := []testEntry{
		fileEntry("config.ini", "first version", 0o644),
		fileEntry("config.ini", "second version", 0o644),
	}
	archive := filepath.Join(t.TempDir(), "snap.tar.gz")
	writeTestArchive(t, archive, entries)

	_, staging, err := extractTo(t, archive, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(staging, "config.ini"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second version" {
		t.Errorf("content = %q, archive order not honored", data)
	}
}
