//go:build windows
// +build windows

package ffmpeg

import "syscall"

// setupProcessGroup creates the child in a new process group on Windows.
func setupProcessGroup(cmd Commander) {
	cmd.SetSysProcAttr(&syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	})
}

// killProcessGroup kills the process; Windows has no group kill via signal,
// terminating the process is the best available.
func killProcessGroup(cmd Commander) error {
	proc := cmd.Process()
	if proc == nil {
		return nil
	}
	return proc.Kill()
}
