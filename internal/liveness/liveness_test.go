package liveness

import (
	"errors"
	"os"
	"os/exec"
	"testing"
)

func TestKillOracle_SelfIsAliveOurs(t *testing.T) {
	self := os.Getpid()
	v, err := KillOracle{}.Check(self, self)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v != AliveOurs {
		t.Errorf("verdict = %v; want AliveOurs", v)
	}
}

func TestKillOracle_SelfWithDifferentIdentityIsAliveOther(t *testing.T) {
	self := os.Getpid()
	v, err := KillOracle{}.Check(self, self+1)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v != AliveOther {
		t.Errorf("verdict = %v; want AliveOther", v)
	}
}

func TestKillOracle_DeadProcess(t *testing.T) {
	// Spawn a process and let it exit so we hold a PID known to be dead.
	cmd := exec.Command(os.Args[0], "-test.run=NoSuchTestName")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		// A failing exit status is fine; we only need the process gone.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("wait: %v", err)
		}
	}

	v, err := KillOracle{}.Check(pid, os.Getpid())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v != Dead {
		t.Errorf("verdict = %v; want Dead (pid %d has exited and been reaped)", v, pid)
	}
}

func TestVerdict_String(t *testing.T) {
	cases := map[Verdict]string{
		Dead:       "dead",
		AliveOurs:  "alive (ours)",
		AliveOther: "alive (other)",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Errorf("Verdict(%d).String() = %q; want %q", v, got, want)
		}
	}
}
