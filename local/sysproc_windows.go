// SPDX-License-Identifier: EPL-2.0

//go:build windows

package local

import (
	"os/exec"
	"syscall"
)

// applyProcessGroup places the child into its own process group on
// Windows via the creation flag equivalent to Setpgid.
func applyProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}
