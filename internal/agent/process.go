package agent

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrNotRunning is returned by Signal when no live daemon owns the pid file
var ErrNotRunning = errors.New("daemon is not running")

// Running reports whether the pid file at path names a live process
func Running(pidPath string) bool {
	pid, err := readPID(pidPath)
	if err != nil {
		return false
	}
	return alive(pid)
}

// Signal asks the daemon named by the pid file to shut down and returns its
// pid. On Windows, where processes cannot be interrupted, the daemon is
// killed.
func Signal(pidPath string) (int, error) {
	pid, err := readPID(pidPath)
	if err != nil || !alive(pid) {
		return 0, ErrNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := terminate(proc); err != nil {
		return pid, fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return pid, nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file %s: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid %d in %s", pid, path)
	}
	return pid, nil
}
