package lockfile

import (
	"errors"
	"fmt"
	"os"
)

// Release verifies ownership and removes the lock file. The file is opened
// without O_CREATE (releasing a lock that does not exist is an error,
// ErrNotLocked) and the advisory lock is taken blocking so the release
// cannot race a concurrent acquire transaction. If the recorded owner is
// not ownerPID the file is left untouched and ErrNotOwner is returned.
// ownerPID zero means the parent process ID, matching Acquire.
func Release(path string, ownerPID int) error {
	if ownerPID == 0 {
		ownerPID = os.Getppid()
	}

	h, err := openLock(path, false, nil)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("release %s: %w: %w", path, ErrNotLocked, err)
		}
		return err
	}
	defer h.closeQuiet()

	if err := exclusiveLock(h.f); err != nil {
		return fmt.Errorf("flock %s: %w", path, err)
	}

	pid, ok, err := h.readOwner()
	if err != nil {
		return err
	}
	if !ok || pid != ownerPID {
		return fmt.Errorf("release %s: held by pid %d, not %d: %w", path, pid, ownerPID, ErrNotOwner)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}

// ForceRelease removes the lock file without verifying ownership. This is
// deliberately not the default release path: it lets a non-owner destroy
// another process's held lock. Deleting the file is equivalent to a
// release for every protocol participant.
func ForceRelease(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("release %s: %w: %w", path, ErrNotLocked, err)
		}
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}
