// SPDX-License-Identifier: EPL-2.0

//go:build !windows

package local

import (
	"os/exec"
	"syscall"
)

// applyProcessGroup places the child into its own process group before
// exec, so a signal delivered to this process's group does not also
// reach it.
func applyProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
