package restore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// stagingPathFor derives the default staging location: a sibling of
// the destination, so the final rename stays on one filesystem.
func stagingPathFor(dest string) string {
	return fmt.Sprintf("%s.new_%d_%d", dest, os.Getpid(), time.Now().Unix())
}

// backupPathFor derives the side path where the previous destination
// tree is parked during the swap.
func backupPathFor(dest string) string {
	return fmt.Sprintf("%s.old_%d_%d", dest, os.Getpid(), time.Now().Unix())
}

// sameDevice reports whether two existing paths are on the same
// filesystem. A cross-device rename cannot be atomic, so the swap
// refuses to run across devices.
func sameDevice(a, b string) (bool, error) {
	devA, okA, err := deviceOf(a)
	if err != nil {
		return false, err
	}
	devB, okB, err := deviceOf(b)
	if err != nil {
		return false, err
	}
	if !okA || !okB {
		// No device information on this platform; the rename itself
		// will fail with EXDEV if the assumption is wrong.
		return true, nil
	}
	return devA == devB, nil
}

func deviceOf(path string) (uint64, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, fmt.Errorf("stat %s: %w", path, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return 0, false, nil
	}
	return uint64(st.Dev), true, nil
}

// swapIntoPlace atomically replaces dest with the staged tree. Two
// independent renames: dest is parked at a backup path, then staging
// takes its place. If the second rename fails the first is reversed,
// so an observer never finds the destination missing. Returns the
// backup path when a previous tree existed.
func swapIntoPlace(stagingDir, dest string, logger *slog.Logger) (string, error) {
	backupPath := ""
	if _, err := os.Stat(dest); err == nil {
		backupPath = backupPathFor(dest)
		if err := os.Rename(dest, backupPath); err != nil {
			return "", fmt.Errorf("parking previous destination: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat destination: %w", err)
	}

	if err := os.Rename(stagingDir, dest); err != nil {
		if backupPath != "" {
			if rbErr := os.Rename(backupPath, dest); rbErr != nil {
				logger.Error("rollback failed; manual intervention required",
					"backup", backupPath, "destination", dest, "error", rbErr)
				return backupPath, fmt.Errorf("swapping staging into place: %w (rollback also failed, backup left at %s)", err, backupPath)
			}
		}
		return "", fmt.Errorf("swapping staging into place: %w", err)
	}

	return backupPath, nil
}

// removeBackup deletes the parked previous tree. Failure here is a
// warning, not an error: the restore already succeeded.
func removeBackup(backupPath string, logger *slog.Logger) error {
	if backupPath == "" {
		return nil
	}
	if err := os.RemoveAll(backupPath); err != nil {
		logger.Warn("failed to remove backup directory", "path", backupPath, "error", err)
		return err
	}
	return nil
}
