package lockfile

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"busy", &BusyError{Path: "/x", HolderPID: 1}, ExitLockBusy},
		{"wait expired", fmt.Errorf("lock /x: %w", ErrWaitExpired), ExitLockBusy},
		{"not owner", fmt.Errorf("release /x: %w", ErrNotOwner), ExitLockBusy},
		{"already held", fmt.Errorf("lock /x: %w", ErrAlreadyHeld), ExitAlreadyHeld},
		{"errno passthrough", fmt.Errorf("open /x: %w", syscall.ENOENT), int(syscall.ENOENT)},
		{"errno not distinguishable", fmt.Errorf("x: %w", syscall.Errno(0)), ExitUnknown},
		{"plain error", errors.New("boom"), ExitUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode(%v) = %d; want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestDistinguishedExitCodesAreDistinct(t *testing.T) {
	codes := map[int]string{
		ExitSuccess:     "success",
		ExitAlreadyHeld: "already held",
		ExitLockBusy:    "lock busy",
		ExitUsage:       "usage",
		ExitUnknown:     "unknown",
	}
	if len(codes) != 5 {
		t.Fatal("exit codes collide; they are a compatibility contract")
	}
}

func TestBusyError_Message(t *testing.T) {
	withPID := &BusyError{Path: "/var/lock/job.lock", HolderPID: 100}
	if got, want := withPID.Error(), "process 100 holds lock '/var/lock/job.lock'"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}

	unknown := &BusyError{Path: "/var/lock/job.lock"}
	if got, want := unknown.Error(), "lock '/var/lock/job.lock' is busy"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}

	if !errors.Is(withPID, ErrLockBusy) {
		t.Error("BusyError should unwrap to ErrLockBusy")
	}
}
