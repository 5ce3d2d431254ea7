//go:build !windows

package lockfile

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultOwnershipFixer is the one-shot recovery for a permission error hit
// by a privileged caller: some network and overlay filesystems serve stale
// cached ownership for the lock directory, and re-chowning it forces a
// refresh. It refuses to do anything for unprivileged callers, which makes
// the surrounding retry a no-op for them.
func DefaultOwnershipFixer(path string) error {
	if os.Geteuid() != 0 {
		return errors.New("ownership fix requires privilege")
	}
	dir := filepath.Dir(path)
	return unix.Chown(dir, os.Geteuid(), os.Getegid())
}
