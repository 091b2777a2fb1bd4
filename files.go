// SPDX-License-Identifier: MPL-2.0

package spur

import "context"

// Files is a thin convenience wrapper around Shell.Run exposing the
// handful of filesystem operations callers reach for constantly. It adds
// no substrate-specific behavior of its own — every method reduces to a
// single Run call — which is why spec.md treats it as an external
// collaborator of the core rather than part of the hard substrate
// machinery.
type Files struct {
	shell Shell
}

// NewFiles wraps shell in a Files convenience accessor.
func NewFiles(shell Shell) *Files {
	return &Files{shell: shell}
}

// Cp copies src to dst using the substrate's "cp" command.
func (f *Files) Cp(ctx context.Context, src, dst string) error {
	_, err := f.shell.Run(ctx, []string{"cp", src, dst}, CommandOptions{})
	return err
}

// MkdirAll creates path and any missing parents using "mkdir -p".
func (f *Files) MkdirAll(ctx context.Context, path string) error {
	_, err := f.shell.Run(ctx, []string{"mkdir", "-p", path}, CommandOptions{})
	return err
}
