// Package liveness answers the question "is this PID a currently-running
// process, and is it us?". The lock engine uses it to decide whether a PID
// recorded in a lock file still owns the lock or is stale residue from a
// crashed holder.
package liveness

// Verdict classifies a PID probe.
type Verdict int

const (
	// Dead means no process with that PID exists.
	Dead Verdict = iota
	// AliveOurs means the process exists and its PID matches the identity
	// on whose behalf we are acting.
	AliveOurs
	// AliveOther means the process exists but is not ours. This includes
	// processes we cannot signal: a live foreign process must never have
	// its lock reclaimed, so lack of permission counts as alive.
	AliveOther
)

func (v Verdict) String() string {
	switch v {
	case Dead:
		return "dead"
	case AliveOurs:
		return "alive (ours)"
	case AliveOther:
		return "alive (other)"
	default:
		return "unknown"
	}
}

// Oracle probes whether a PID denotes a running process. selfPID is the
// identity the caller acts on behalf of; it is compared against pid to
// distinguish AliveOurs from AliveOther. A non-nil error means the probe
// itself failed and no verdict could be reached.
type Oracle interface {
	Check(pid, selfPID int) (Verdict, error)
}

// KillOracle probes liveness with the platform process-existence check
// (the null signal on POSIX). It is the default Oracle.
type KillOracle struct{}

// Check implements Oracle.
func (KillOracle) Check(pid, selfPID int) (Verdict, error) {
	return probe(pid, selfPID)
}
