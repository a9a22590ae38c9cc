//go:build !windows
// +build !windows

package ffmpeg

import "syscall"

// setupProcessGroup places the child in its own process group so a kill can
// take its helpers down with it.
func setupProcessGroup(cmd Commander) {
	cmd.SetSysProcAttr(&syscall.SysProcAttr{
		Setpgid: true,
	})
}

// killProcessGroup kills the process and its children.
func killProcessGroup(cmd Commander) error {
	proc := cmd.Process()
	if proc == nil {
		return nil
	}
	return syscall.Kill(-proc.Pid, syscall.SIGKILL)
}
