//go:build !windows

// Package process provides best-effort termination of browser process
// trees left behind when the display surface shuts down uncleanly.
package process

import "syscall"

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID). PIDs <= 0 are ignored; -0 would
// target the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort cleanup; error ignored as launcher.Kill() provides fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
