//go:build windows

package lockfile

import "errors"

// DefaultOwnershipFixer is a unix-only recovery for stale cached directory
// ownership on network mounts; there is no equivalent condition to repair
// on Windows.
func DefaultOwnershipFixer(path string) error {
	return errors.New("ownership fix is not supported on this platform")
}
