//go:build windows

package liveness

import (
	"golang.org/x/sys/windows"
)

// probe opens the process handle to test existence. ERROR_INVALID_PARAMETER
// means no such PID. A permission error means the process exists but is not
// accessible, which still counts as alive.
func probe(pid, selfPID int) (Verdict, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		if err == windows.ERROR_INVALID_PARAMETER {
			return Dead, nil
		}
		// Assume alive on access errors to avoid reclaiming a live
		// process's lock.
		return AliveOther, nil
	}
	_ = windows.CloseHandle(h)
	if pid == selfPID {
		return AliveOurs, nil
	}
	return AliveOther, nil
}
