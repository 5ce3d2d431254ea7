package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/snapbak/lockpid/internal/liveness"
)

// SweepStale scans dir for *.lock files whose recorded owner is no longer
// running and removes them. Files whose advisory lock is currently held
// (someone is mid-transaction) and files with a live owner are skipped.
// Empty or unparsable lock files count as stale. Returns how many files
// were removed.
func SweepStale(dir string, oracle liveness.Oracle) (int, error) {
	if oracle == nil {
		oracle = liveness.KillOracle{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		ok, err := sweepOne(filepath.Join(dir, entry.Name()), oracle)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// sweepOne removes path if its recorded owner is dead. Same transaction
// shape as an acquire, minus the write.
func sweepOne(path string, oracle liveness.Oracle) (bool, error) {
	h, err := openLock(path, false, nil)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil // removed since ReadDir
		}
		return false, err
	}
	defer h.closeQuiet()

	if err := tryExclusiveLock(h.f); err != nil {
		if isLockHeldError(err) {
			return false, nil
		}
		return false, err
	}

	pid, ok, err := h.readOwner()
	if err != nil {
		return false, err
	}
	if ok {
		verdict, err := oracle.Check(pid, 0)
		if err != nil {
			return false, err
		}
		if verdict != liveness.Dead {
			return false, nil
		}
	}

	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}
