//go:build !windows

package liveness

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// probe sends the null signal to pid. ESRCH means no such process; EPERM
// means the process exists but is not signalable by us, which still counts
// as alive.
func probe(pid, selfPID int) (Verdict, error) {
	err := unix.Kill(pid, 0)
	switch err {
	case nil:
		if pid == selfPID {
			return AliveOurs, nil
		}
		return AliveOther, nil
	case unix.ESRCH:
		return Dead, nil
	case unix.EPERM:
		return AliveOther, nil
	default:
		return Dead, fmt.Errorf("signal pid %d: %w", pid, err)
	}
}
