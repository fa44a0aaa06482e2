package main

import (
	"testing"
	"time"

	"github.com/projectvault/projectrestore/internal/config"
)

func resetRestoreFlags() {
	restoreArchive = ""
	restoreDest = ""
	restoreStagingDir = ""
	restoreChecksums = ""
	restoreMaxFiles = 0
	restoreMaxBytes = 0
	restoreAllowPax = false
	restoreAllowSparse = false
	restoreDryRun = false
	restoreKeepBackup = false
	restoreLockFile = ""
	restoreStaleSeconds = 0
}

func TestBuildRestoreOptionsFromConfig(t *testing.T) {
	resetRestoreFlags()
	globalCfg = config.DefaultConfig()
	globalCfg.Restore.Destination = "/srv/project"
	globalCfg.Policy.MaxFiles = 500
	globalCfg.Policy.AllowPax = true
	globalCfg.Lock.StaleSeconds = 120

	cmd := newRestoreCmd()
	if err := cmd.Flags().Parse([]string{"--archive", "snap.tar.gz"}); err != nil {
		t.Fatal(err)
	}
	restoreArchive = "snap.tar.gz"

	opts, err := buildRestoreOptions(cmd)
	if err != nil {
		t.Fatalf("buildRestoreOptions returned error: %v", err)
	}
	if opts.Destination != "/srv/project" {
		t.Errorf("destination = %q", opts.Destination)
	}
	if opts.Policy.MaxFiles != 500 || !opts.Policy.AllowPax {
		t.Errorf("policy not taken from config: %+v", opts.Policy)
	}
	if opts.LockStaleAfter != 120*time.Second {
		t.Errorf("stale threshold = %v", opts.LockStaleAfter)
	}
}

func TestBuildRestoreOptionsFlagsOverrideConfig(t *testing.T) {
	resetRestoreFlags()
	globalCfg = config.DefaultConfig()
	globalCfg.Restore.Destination = "/srv/project"
	globalCfg.Policy.MaxFiles = 500
	globalCfg.Policy.AllowPax = true

	cmd := newRestoreCmd()
	args := []string{
		"--archive", "snap.tar.gz",
		"--dest", "/srv/other",
		"--max-files", "7",
		"--allow-pax=false",
		"--stale-seconds", "60",
	}
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}

	opts, err := buildRestoreOptions(cmd)
	if err != nil {
		t.Fatalf("buildRestoreOptions returned error: %v", err)
	}
	if opts.Destination != "/srv/other" {
		t.Errorf("destination = %q", opts.Destination)
	}
	if opts.Policy.MaxFiles != 7 {
		t.Errorf("max files = %d", opts.Policy.MaxFiles)
	}
	if opts.Policy.AllowPax {
		t.Error("explicit --allow-pax=false did not override config")
	}
	if opts.LockStaleAfter != time.Minute {
		t.Errorf("stale threshold = %v", opts.LockStaleAfter)
	}
}

func TestBuildRestoreOptionsRequiresDestination(t *testing.T) {
	resetRestoreFlags()
	globalCfg = config.DefaultConfig()

	cmd := newRestoreCmd()
	if err := cmd.Flags().Parse([]string{"--archive", "snap.tar.gz"}); err != nil {
		t.Fatal(err)
	}
	if _, err := buildRestoreOptions(cmd); err == nil {
		t.Fatal("expected missing destination to fail")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:          "0 B",
		512:        "512 B",
		1024:       "1.0 KB",
		1536:       "1.5 KB",
		1048576:    "1.0 MB",
		5368709120: "5.0 GB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
