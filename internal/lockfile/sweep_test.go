package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestSweepStale_RemovesDeadAndEmptyLocks(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
		return path
	}

	stale := write("stale.lock", fmt.Sprintf("%10d\n", 4242))
	live := write("live.lock", fmt.Sprintf("%10d\n", 100))
	empty := write("empty.lock", "")
	other := write("notes.txt", "not a lock file")

	n, err := SweepStale(dir, aliveOracle(100))
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d; want 2 (stale + empty)", n)
	}

	for _, gone := range []string{stale, empty} {
		if _, err := os.Stat(gone); err == nil {
			t.Errorf("%s should have been removed", filepath.Base(gone))
		}
	}
	for _, kept := range []string{live, other} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("%s should have been kept", filepath.Base(kept))
		}
	}
}

func TestSweepStale_EmptyDirectory(t *testing.T) {
	n, err := SweepStale(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 0 {
		t.Errorf("removed = %d; want 0", n)
	}
}

func TestSweepStale_MissingDirectoryIsError(t *testing.T) {
	if _, err := SweepStale(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
