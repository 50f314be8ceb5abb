//go:build windows

package system

import (
	"os/exec"
	"syscall"
)

// CREATE_NO_WINDOW keeps console programs from flashing a window.
const createNoWindow = 0x08000000

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
