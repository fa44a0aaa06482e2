package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Lock.StaleSeconds != 3600 {
		t.Errorf("default stale_seconds = %d, want 3600", cfg.Lock.StaleSeconds)
	}
	if cfg.Policy.AllowPax || cfg.Policy.AllowSparse {
		t.Error("pax/sparse must default to disallowed")
	}
	if cfg.Policy.MaxFiles != 0 || cfg.Policy.MaxBytes != 0 {
		t.Error("ceilings must default to unlimited")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projectrestore.yaml")
	content := `
restore:
  destination: /srv/project
  keep_backup: true
policy:
  max_files: 1000
  max_bytes: 1073741824
  allow_pax: true
lock:
  stale_seconds: 600
journal:
  db_path: /var/lib/projectrestore/journal.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Restore.Destination != "/srv/project" {
		t.Errorf("destination = %q", cfg.Restore.Destination)
	}
	if !cfg.Restore.KeepBackup {
		t.Error("keep_backup not parsed")
	}
	if cfg.Policy.MaxFiles != 1000 || cfg.Policy.MaxBytes != 1073741824 {
		t.Errorf("ceilings = %d/%d", cfg.Policy.MaxFiles, cfg.Policy.MaxBytes)
	}
	if !cfg.Policy.AllowPax {
		t.Error("allow_pax not parsed")
	}
	if cfg.Lock.StaleSeconds != 600 {
		t.Errorf("stale_seconds = %d", cfg.Lock.StaleSeconds)
	}
	if cfg.Journal.DBPath == "" {
		t.Error("journal db_path not parsed")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("policy:\n  max_files: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected negative ceiling to be rejected")
	}
}

func TestLockPathDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Restore.Destination = "/srv/project"
	if got := cfg.LockPath(); got != "/srv/project.lock" {
		t.Errorf("LockPath = %q", got)
	}
	cfg.Lock.Path = "/run/restore.lock"
	if got := cfg.LockPath(); got != "/run/restore.lock" {
		t.Errorf("LockPath override = %q", got)
	}
}
