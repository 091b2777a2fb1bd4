// SPDX-License-Identifier: MPL-2.0

package spur

import "io"

// CommandOptions configures a single Spawn or Run call. The zero value
// runs Argv[0] with no working-directory override, the caller's
// environment, and raw byte output.
type CommandOptions struct {
	// Cwd overrides the working directory the command is started in.
	// Empty means inherit the shell's own working directory.
	Cwd string
	// Env overlays additional environment variables on top of the
	// substrate's ambient environment. A nil/empty map leaves the
	// ambient environment untouched.
	Env map[string]string
	// StorePID requests that the spawned Process expose its PID. Signal
	// delivery over SSH requires this to have been set.
	StorePID bool
	// UsePTY allocates a pseudo-terminal for the child. On UsePTY,
	// stderr is merged into stdout and ExecutionResult.StderrOutput is
	// always empty.
	UsePTY bool
	// NewProcessGroup places the child into its own process group, so a
	// signal sent to the Shell's own process group does not reach it.
	NewProcessGroup bool
	// AllowError suppresses the RunProcessError that Run would otherwise
	// return for a non-zero exit code.
	AllowError bool
	// Encoding, if non-empty, decodes captured output as text using this
	// encoding name before it lands in ExecutionResult. Only "utf8" is
	// currently supported.
	Encoding string
	// Stdout, if set, receives a copy of every captured stdout byte as
	// it arrives, in addition to the buffered copy in ExecutionResult.
	Stdout io.Writer
	// Stderr, if set, receives a copy of every captured stderr byte as
	// it arrives, in addition to the buffered copy in ExecutionResult.
	Stderr io.Writer
}

// Sink is the interface a streaming consumer of captured output must
// satisfy. io.Writer already satisfies it; it exists as a documented name
// for the role CommandOptions.Stdout/Stderr play.
type Sink = io.Writer
