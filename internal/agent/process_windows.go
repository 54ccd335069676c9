//go:build windows

package agent

import "os"

// alive relies on FindProcess opening a process handle, which fails once the
// process has exited
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}

func terminate(proc *os.Process) error {
	return proc.Kill()
}
