//go:build windows

package lockfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// tryExclusiveLock attempts an exclusive non-blocking lock on the first
// byte of the file.
func tryExclusiveLock(f *os.File) error {
	h := windows.Handle(f.Fd())
	var ov windows.Overlapped
	return windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &ov)
}

// exclusiveLock takes an exclusive blocking lock on the first byte.
func exclusiveLock(f *os.File) error {
	h := windows.Handle(f.Fd())
	var ov windows.Overlapped
	return windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ov)
}

func isLockHeldError(err error) bool {
	return errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}

// openNoFollow opens path, refusing a symlink (or other reparse point) at
// the final component. There is no O_NOFOLLOW equivalent in the portable
// open flags, so the link check is a separate Lstat.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fi, err := os.Lstat(path)
	if err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("open %s: %w", path, ErrUnsafeSymlink)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("lstat %s: %w", path, err)
	}
	return os.OpenFile(path, flag, perm)
}
