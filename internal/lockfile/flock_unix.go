//go:build !windows

package lockfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// tryExclusiveLock attempts an exclusive non-blocking flock on fd.
func tryExclusiveLock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// exclusiveLock takes an exclusive blocking flock on fd. Protocol
// participants only hold the flock across a short read-check-write
// transaction, so blocking here is brief.
func exclusiveLock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func isLockHeldError(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}

// openNoFollow opens path, refusing to follow a symlink at the final
// component. O_NOFOLLOW makes the kernel fail such opens with ELOOP.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag|unix.O_NOFOLLOW, perm)
	if err != nil && errors.Is(err, unix.ELOOP) {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrUnsafeSymlink, err)
	}
	return f, err
}
