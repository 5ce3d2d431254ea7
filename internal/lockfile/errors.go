package lockfile

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors for the lock protocol. Callers dispatch on these with
// errors.Is; ExitCode maps them to the process exit status contract.
var (
	// ErrLockBusy means another live process holds the lock.
	ErrLockBusy = errors.New("lock is held by another process")

	// ErrWaitExpired means the wait deadline passed while the lock was
	// still busy. It is a LockBusy-class condition.
	ErrWaitExpired = fmt.Errorf("wait deadline exceeded: %w", ErrLockBusy)

	// ErrNotOwner means a release was refused because the recorded owner
	// is not the caller. Also LockBusy-class: the lock is not ours to touch.
	ErrNotOwner = fmt.Errorf("not the recorded owner: %w", ErrLockBusy)

	// ErrUnsafeSymlink means the lock path is a symbolic link. Writing
	// through it could be redirected to an arbitrary file, so we refuse.
	ErrUnsafeSymlink = errors.New("unsafe for lock file to be a symlink")

	// ErrAlreadyHeld means the caller's own PID is already the recorded
	// owner. Only an error when the caller asked for it to be one.
	ErrAlreadyHeld = errors.New("lock already held by caller")

	// ErrNotLocked means a release was requested for a lock file that
	// does not exist.
	ErrNotLocked = errors.New("lock file does not exist")
)

// BusyError carries the holding PID for reporting. It unwraps to ErrLockBusy.
type BusyError struct {
	Path      string
	HolderPID int
}

func (e *BusyError) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("process %d holds lock '%s'", e.HolderPID, e.Path)
	}
	return fmt.Sprintf("lock '%s' is busy", e.Path)
}

func (e *BusyError) Unwrap() error { return ErrLockBusy }

// Process exit codes. These are a compatibility contract with shell callers:
// exit status is one byte wide and bash reports >= 128 when a process dies
// from a signal, so the distinguished statuses count down from 127.
// I/O failures exit with the underlying errno where one is available.
const (
	ExitSuccess     = 0
	ExitAlreadyHeld = 124
	ExitLockBusy    = 125
	ExitUsage       = 126
	ExitUnknown     = 127
)

// ExitCode maps an error from Acquire or Release to the exit status
// contract. A nil error is ExitSuccess. Errors carrying an errno exit with
// that errno; an errno of 0 or 1 is not distinguishable from the generic
// statuses, so it falls back to ExitUnknown.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, ErrAlreadyHeld) {
		return ExitAlreadyHeld
	}
	if errors.Is(err, ErrLockBusy) {
		return ExitLockBusy
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && int(errno) > 1 {
		return int(errno)
	}
	return ExitUnknown
}
