package lockfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ownerFieldWidth is the width of the PID field in the lock file, per the
// FHS pid-file convention: a right-aligned decimal in a 10-character field,
// newline-terminated. Readers accept any leading decimal; the width is for
// human eyes only.
const ownerFieldWidth = 10

// ownerLineMax bounds how much of a lock file we bother reading. A valid
// owner line is 11 bytes; anything past this is garbage.
const ownerLineMax = 32

// handle owns the open descriptor for a lock file. The advisory lock taken
// on the descriptor is released when the descriptor is closed.
type handle struct {
	path string
	f    *os.File
}

// openLock opens the lock file for read/write, creating it unless create is
// false. It refuses symlinks (ErrUnsafeSymlink). When the open fails with a
// permission error and fix is non-nil, fix is invoked once and the open is
// retried; fix is then cleared so a second failure is fatal.
func openLock(path string, create bool, fix *OwnershipFixer) (*handle, error) {
	flag := os.O_RDWR
	if create {
		// Creation mode is wide open on purpose: umask decides who may
		// reclaim a stale lock.
		flag |= os.O_CREATE
	}

	f, err := openNoFollow(path, flag, 0666)
	if err != nil && fix != nil && *fix != nil && errors.Is(err, os.ErrPermission) {
		fixer := *fix
		*fix = nil
		if ferr := fixer(path); ferr == nil {
			f, err = openNoFollow(path, flag, 0666)
		}
	}
	if err != nil {
		return nil, err
	}
	return &handle{path: path, f: f}, nil
}

// readOwner reads the owner line from the start of the file and parses the
// leading decimal PID. ok is false when the file is empty or the content is
// not a PID; that is distinct from pid 0 and means "no recorded owner".
func (h *handle) readOwner() (pid int, ok bool, err error) {
	if _, err := h.f.Seek(0, 0); err != nil {
		return 0, false, fmt.Errorf("seek %s: %w", h.path, err)
	}
	buf := make([]byte, ownerLineMax)
	n, err := h.f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, false, fmt.Errorf("read %s: %w", h.path, err)
	}
	if n == 0 {
		return 0, false, nil
	}

	fields := strings.Fields(string(buf[:n]))
	if len(fields) == 0 {
		return 0, false, nil
	}
	pid, perr := strconv.Atoi(fields[0])
	if perr != nil || pid <= 0 {
		return 0, false, nil
	}
	return pid, true, nil
}

// writeOwner records pid as the owner: seek to the start, truncate, write
// the formatted line. On a short or failed write the file is truncated
// again so a half-written PID cannot be mistaken for a real owner.
func (h *handle) writeOwner(pid int) error {
	if _, err := h.f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek %s: %w", h.path, err)
	}
	if err := h.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", h.path, err)
	}

	line := fmt.Sprintf("%*d\n", ownerFieldWidth, pid)
	n, err := h.f.WriteString(line)
	if err != nil || n != len(line) {
		_ = h.f.Truncate(0)
		if err == nil {
			err = fmt.Errorf("short write (%d of %d bytes)", n, len(line))
		}
		return fmt.Errorf("write %s: %w", h.path, err)
	}
	return nil
}

// close closes the descriptor, releasing the advisory lock. If the close
// itself fails the file contents may not have been flushed, so the lock
// file is removed rather than left holding a misleading PID.
func (h *handle) close() error {
	if err := h.f.Close(); err != nil {
		_ = os.Remove(h.path)
		return fmt.Errorf("close %s: %w", h.path, err)
	}
	return nil
}

// closeQuiet closes the descriptor without the remove-on-failure rule. Used
// on paths where we never wrote and the lock may belong to someone else.
func (h *handle) closeQuiet() {
	_ = h.f.Close()
}
