package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func openForTest(t *testing.T, path string, create bool) *handle {
	t.Helper()
	h, err := openLock(path, create, nil)
	if err != nil {
		t.Fatalf("openLock: %v", err)
	}
	t.Cleanup(h.closeQuiet)
	return h
}

// ---------------------------------------------------------------------------
// readOwner
// ---------------------------------------------------------------------------

func TestReadOwner_ParsesPaddedPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%10d\n", 1234)), 0666); err != nil {
		t.Fatal(err)
	}

	h := openForTest(t, path, false)
	pid, ok, err := h.readOwner()
	if err != nil {
		t.Fatalf("readOwner: %v", err)
	}
	if !ok || pid != 1234 {
		t.Errorf("readOwner = (%d, %v); want (1234, true)", pid, ok)
	}
}

func TestReadOwner_DistinguishesEmptyFromZero(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"garbage", "hello world\n"},
		{"zero", "0\n"},
		{"negative", "-5\n"},
		{"float", "12.5\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x.lock")
			if err := os.WriteFile(path, []byte(tc.content), 0666); err != nil {
				t.Fatal(err)
			}

			h := openForTest(t, path, false)
			pid, ok, err := h.readOwner()
			if err != nil {
				t.Fatalf("readOwner: %v", err)
			}
			if ok {
				t.Errorf("readOwner(%q) = (%d, true); want no recorded owner", tc.content, pid)
			}
		})
	}
}

func TestReadOwner_UnpaddedPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	if err := os.WriteFile(path, []byte("42\n"), 0666); err != nil {
		t.Fatal(err)
	}

	h := openForTest(t, path, false)
	pid, ok, _ := h.readOwner()
	if !ok || pid != 42 {
		t.Errorf("readOwner = (%d, %v); want (42, true)", pid, ok)
	}
}

// ---------------------------------------------------------------------------
// writeOwner
// ---------------------------------------------------------------------------

func TestWriteOwner_FormatsFixedWidthLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	h := openForTest(t, path, true)

	if err := h.writeOwner(7); err != nil {
		t.Fatalf("writeOwner: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "         7\n"
	if string(data) != want {
		t.Errorf("lock file = %q; want %q", data, want)
	}
	if len(data) != ownerFieldWidth+1 {
		t.Errorf("line length = %d; want %d", len(data), ownerFieldWidth+1)
	}
}

func TestWriteOwner_ReplacesLongerContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	if err := os.WriteFile(path, []byte("previous much longer content here\n"), 0666); err != nil {
		t.Fatal(err)
	}

	h := openForTest(t, path, false)
	if err := h.writeOwner(9); err != nil {
		t.Fatalf("writeOwner: %v", err)
	}

	data, _ := os.ReadFile(path)
	want := fmt.Sprintf("%10d\n", 9)
	if string(data) != want {
		t.Errorf("lock file = %q; want %q (stale tail must be truncated)", data, want)
	}
}

// ---------------------------------------------------------------------------
// openLock
// ---------------------------------------------------------------------------

func TestOpenLock_NoCreateMissingFile(t *testing.T) {
	_, err := openLock(filepath.Join(t.TempDir(), "absent.lock"), false, nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v; want ErrNotExist", err)
	}
}

func TestOpenLock_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.lock")
	h := openForTest(t, path, true)
	_ = h

	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestOpenLock_FixerInvokedOnceOnPermissionError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denied.lock")
	if err := os.WriteFile(path, nil, 0666); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}
	if os.Getuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	calls := 0
	var fixer OwnershipFixer = func(p string) error {
		calls++
		// Repair the situation the way the real fixer would.
		return os.Chmod(p, 0666)
	}

	h, err := openLock(path, false, &fixer)
	if err != nil {
		t.Fatalf("openLock with fixer: %v", err)
	}
	h.closeQuiet()

	if calls != 1 {
		t.Errorf("fixer calls = %d; want 1", calls)
	}
	if fixer != nil {
		t.Error("fixer should be cleared after its one shot")
	}
}
