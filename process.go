// SPDX-License-Identifier: MPL-2.0

package spur

import "context"

// Process is the substrate-neutral handle returned by Shell.Spawn.
//
// Pid is only meaningful when the originating CommandOptions.StorePID was
// true; implementations return false for ok otherwise.
type Process interface {
	// IsRunning reports whether the process has not yet exited. It never
	// blocks.
	IsRunning() bool
	// Pid returns the child's process ID and true, if CommandOptions.StorePID
	// was set when the process was spawned; otherwise ok is false.
	Pid() (pid int, ok bool)
	// StdinWrite writes b to the process's standard input. It blocks on
	// back-pressure the same way a direct pipe/channel write would.
	StdinWrite(b []byte) (int, error)
	// SendSignal delivers the given signal number to the process. It
	// requires the process to have been spawned with StorePID set.
	SendSignal(signal int) error
	// Wait blocks until the process has exited and returns its result.
	// It is idempotent: calling it more than once returns the same
	// result (or error) without re-running anything.
	Wait(ctx context.Context) (*ExecutionResult, error)
}
