// Package daemon keeps a PID file for a running bar, so that other
// processes can find it and send it realtime signals.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"golang.org/x/sys/unix"
)

// ErrRunning is returned when a live process already holds the PID file.
var ErrRunning = errors.New("bar already running")

// PIDPath returns the PID file kept next to a control socket.
func PIDPath(socketPath string) string {
	return strings.TrimSuffix(socketPath, filepath.Ext(socketPath)) + ".pid"
}

// AcquirePID creates a PID file at path with the current process PID and
// returns a function that removes it again. It fails with ErrRunning if
// another live process holds the file; a file left by a dead process is
// replaced.
//
// The file is replaced atomically, so readers never see a partial PID.
func AcquirePID(path string) (release func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create PID directory: %w", err)
	}

	if pid, err := ReadPID(path); err == nil && pid != os.Getpid() && IsProcessAlive(pid) {
		return nil, fmt.Errorf("%w (PID %d)", ErrRunning, pid)
	}

	pid := os.Getpid()
	if err := renameio.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write PID file: %w", err)
	}

	return func() error { return releasePID(path, pid) }, nil
}

// releasePID removes the PID file if it still names pid.
func releasePID(path string, pid int) error {
	if cur, err := ReadPID(path); err != nil || cur != pid {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove PID file: %w", err)
	}
	return nil
}

// ReadPID reads and parses the PID from the given file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("parse PID file: invalid PID %d", pid)
	}
	return pid, nil
}

// IsProcessAlive reports whether a process with the given PID exists, by
// sending it signal 0. EPERM means the process exists but belongs to
// someone else.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
