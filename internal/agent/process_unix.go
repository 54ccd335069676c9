//go:build !windows

package agent

import (
	"errors"
	"os"
	"syscall"
)

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func terminate(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
