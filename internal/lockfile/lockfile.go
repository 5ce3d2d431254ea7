// Package lockfile implements a single-host, race-free mutual-exclusion
// primitive backed by a filesystem path. A lock file records the PID of its
// holder; an exclusive advisory lock on the file descriptor makes the
// read-check-write transaction atomic against other protocol participants,
// and a liveness probe of the recorded PID lets a new acquirer reclaim a
// lock left behind by a crashed holder.
//
// This is a local lock only. Advisory locks are not reliable on network
// filesystems, and nothing here defends against a dead holder's PID being
// reused by an unrelated process.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/snapbak/lockpid/internal/liveness"
)

// DefaultPollInterval is how long Acquire sleeps between attempts when
// waiting for a busy lock, unless overridden.
const DefaultPollInterval = 50 * time.Millisecond

// OwnershipFixer is an optional recovery hook invoked at most once when
// opening the lock file fails with a permission error. See
// DefaultOwnershipFixer.
type OwnershipFixer func(path string) error

// Options configures a single Acquire call. The zero value acquires on
// behalf of the parent process, non-blocking, with default settings.
type Options struct {
	// OwnerPID is the identity to record as holder. Zero means the parent
	// process ID: the tool is typically invoked by a wrapper on behalf of
	// its parent shell.
	OwnerPID int

	// NewPID, when non-zero, transfers an already-held lock to this PID
	// ("borrow"): if OwnerPID is the recorded holder, NewPID is written in
	// its place instead of reporting AlreadyHeld. NewPID is also what gets
	// written on a fresh acquire.
	NewPID int

	// Wait enables the retry loop: busy attempts are retried every
	// PollInterval until the lock is acquired or WaitTimeout passes.
	Wait bool

	// PollInterval is the sleep between retries. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// WaitTimeout bounds the total wait. Zero means no deadline. The
	// deadline is computed once, when Acquire is entered.
	WaitTimeout time.Duration

	// ErrIfHeld makes AlreadyHeld an error (ErrAlreadyHeld) instead of a
	// success.
	ErrIfHeld bool

	// Fixer, when non-nil, is tried once on a permission error during
	// open. See OwnershipFixer.
	Fixer OwnershipFixer

	// Oracle decides whether a recorded PID is still running. Nil means
	// liveness.KillOracle.
	Oracle liveness.Oracle
}

// Status reports how an Acquire concluded.
type Status int

const (
	// StatusAcquired means the owner line was written: a fresh acquire,
	// a stale-lock reclaim, or a borrow.
	StatusAcquired Status = iota
	// StatusAlreadyHeld means the caller's identity was already the
	// recorded owner; nothing was written.
	StatusAlreadyHeld
)

// Result describes the outcome of an Acquire.
type Result struct {
	Status Status
	// HolderPID is the PID now recorded in the lock file on success, or
	// the competing holder's PID when the attempt ended busy (zero when
	// the holder is unknown, e.g. the flock itself was contended).
	HolderPID int
}

// Acquire runs the lock-acquisition state machine on path: open (creating
// if absent, refusing symlinks), take the exclusive non-blocking advisory
// lock, read the recorded owner, probe its liveness, and either write our
// identity, report AlreadyHeld, or treat the lock as busy. With opts.Wait
// the busy case retries from scratch every PollInterval; otherwise it
// returns a *BusyError immediately.
func Acquire(path string, opts Options) (Result, error) {
	owner := opts.OwnerPID
	if owner == 0 {
		owner = os.Getppid()
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = liveness.KillOracle{}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var deadline time.Time
	if opts.Wait && opts.WaitTimeout > 0 {
		deadline = time.Now().Add(opts.WaitTimeout)
	}

	// The fixer pointer is shared across retries so it fires at most once
	// per call, not once per iteration.
	fixer := opts.Fixer

	for {
		res, busy, err := tryAcquire(path, owner, opts.NewPID, opts.ErrIfHeld, oracle, &fixer)
		if err != nil || !busy {
			return res, err
		}
		if !opts.Wait {
			return res, &BusyError{Path: path, HolderPID: res.HolderPID}
		}

		// No descriptor survives a retry: tryAcquire closed it before
		// reporting busy. Competing waiters race on the next iteration;
		// there is no fairness among them.
		time.Sleep(interval)
		if !deadline.IsZero() && time.Now().After(deadline) {
			return res, fmt.Errorf("lock %s: %w", path, ErrWaitExpired)
		}
	}
}

// tryAcquire is one iteration of the state machine. busy is true when the
// lock is held by someone else (either the flock was contended or the
// recorded owner is alive and foreign); the descriptor is always closed
// before returning busy.
func tryAcquire(path string, owner, newPID int, errIfHeld bool, oracle liveness.Oracle, fixer *OwnershipFixer) (Result, bool, error) {
	h, err := openLock(path, true, fixer)
	if err != nil {
		return Result{}, false, err
	}

	if err := tryExclusiveLock(h.f); err != nil {
		h.closeQuiet()
		if isLockHeldError(err) {
			// Another process is mid-transaction on this path.
			return Result{}, true, nil
		}
		return Result{}, false, fmt.Errorf("flock %s: %w", path, err)
	}

	pid, ok, err := h.readOwner()
	if err != nil {
		h.closeQuiet()
		return Result{}, false, err
	}

	if ok {
		verdict, verr := oracle.Check(pid, owner)
		if verr != nil {
			h.closeQuiet()
			return Result{}, false, verr
		}
		switch verdict {
		case liveness.AliveOurs:
			if newPID == 0 {
				// Already hold the lock; leave the file untouched.
				h.closeQuiet()
				res := Result{Status: StatusAlreadyHeld, HolderPID: pid}
				if errIfHeld {
					return res, false, fmt.Errorf("lock %s: %w", path, ErrAlreadyHeld)
				}
				return res, false, nil
			}
			// Borrow: overwrite with the new PID below.
		case liveness.AliveOther:
			h.closeQuiet()
			return Result{HolderPID: pid}, true, nil
		case liveness.Dead:
			// Stale lock from a crashed holder; the slot is free.
		}
	}

	writePID := owner
	if newPID != 0 {
		writePID = newPID
	}
	if err := h.writeOwner(writePID); err != nil {
		h.closeQuiet()
		return Result{}, false, err
	}
	if err := h.close(); err != nil {
		return Result{}, false, err
	}
	return Result{Status: StatusAcquired, HolderPID: writePID}, false, nil
}

// Inspect reports the recorded owner of path and its liveness without
// mutating anything. It takes the advisory lock (blocking: holders only
// keep it across a short transaction) so the content read is stable. A
// missing lock file returns ErrNotLocked.
func Inspect(path string, oracle liveness.Oracle) (pid int, verdict liveness.Verdict, err error) {
	if oracle == nil {
		oracle = liveness.KillOracle{}
	}

	h, err := openLock(path, false, nil)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, liveness.Dead, fmt.Errorf("lock %s: %w", path, ErrNotLocked)
		}
		return 0, liveness.Dead, err
	}
	defer h.closeQuiet()

	if err := exclusiveLock(h.f); err != nil {
		return 0, liveness.Dead, fmt.Errorf("flock %s: %w", path, err)
	}

	pid, ok, err := h.readOwner()
	if err != nil {
		return 0, liveness.Dead, err
	}
	if !ok {
		return 0, liveness.Dead, nil
	}
	verdict, err = oracle.Check(pid, os.Getpid())
	return pid, verdict, err
}
