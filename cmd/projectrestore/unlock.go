package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/projectvault/projectrestore/internal/lock"
	"github.com/spf13/cobra"
)

var (
	unlockLockFile string
	unlockForce    bool
)

func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Remove a stale restore lock",
		Long: `Inspect the lock record guarding a destination and remove it when its
owner is dead or the record is older than the staleness threshold. A lock
held by a live, recent process is left in place unless --force is given.

Forcing removal while the owner is still restoring defeats the lock; only use
--force when you are certain the owning process is gone.`,
		Example: `  projectrestore unlock --lock-file /srv/project.lock
  projectrestore unlock --lock-file /srv/project.lock --force`,
		RunE: unlockRun,
	}

	cmd.Flags().StringVar(&unlockLockFile, "lock-file", "", "lock record path (defaults to <restore.destination>.lock)")
	cmd.Flags().BoolVar(&unlockForce, "force", false, "remove the record even if the owner looks alive")

	return cmd
}

func unlockRun(cmd *cobra.Command, args []string) error {
	path := unlockLockFile
	if path == "" {
		if globalCfg.Restore.Destination == "" {
			return fmt.Errorf("no lock file: pass --lock-file or set restore.destination in the config")
		}
		path = globalCfg.LockPath()
	}

	rec, err := lock.Inspect(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No lock record at %s.\n", path)
			return nil
		}
		if !unlockForce {
			return fmt.Errorf("unreadable lock record %s (use --force to remove): %w", path, err)
		}
		logger.Warn("removing unreadable lock record", "path", path, "error", err)
		return os.Remove(path)
	}

	staleAfter := time.Duration(globalCfg.Lock.StaleSeconds) * time.Second
	if !unlockForce && !lock.IsStale(rec, staleAfter) {
		return fmt.Errorf("%w: pid %d holds %s (age %s); use --force to override",
			lock.ErrContended, rec.PID, path, time.Since(rec.AcquiredAt).Round(time.Second))
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing lock record: %w", err)
	}
	fmt.Printf("Removed lock record at %s (owner pid %d).\n", path, rec.PID)
	return nil
}
