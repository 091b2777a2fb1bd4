// SPDX-License-Identifier: MPL-2.0

package spur

import (
	"context"
	"io"
)

// Shell is the uniform contract exposed by both substrate
// implementations (local.Shell, ssh.Shell). A caller writes code against
// Shell and can swap substrates by swapping which constructor produced
// the value.
type Shell interface {
	// Spawn starts argv and returns a handle without waiting for it to
	// finish. argv must be non-empty; argv[0] is the program.
	Spawn(argv []string, opts CommandOptions) (Process, error)
	// Run spawns argv and waits for it to finish, returning the same
	// result Spawn(...).Wait() would.
	Run(ctx context.Context, argv []string, opts CommandOptions) (*ExecutionResult, error)
	// Open opens path on the shell's substrate for streaming I/O. mode
	// follows the familiar alphabet: r/w/a/+/b, where b selects raw byte
	// I/O and its absence selects text.
	Open(path string, mode string) (File, error)
	// WriteFile writes contents to path in a single call, creating or
	// truncating the file as needed.
	WriteFile(path string, contents []byte) error
	// UploadFile copies the local file at localPath to remotePath on
	// the shell's substrate.
	UploadFile(localPath, remotePath string) error
	// UploadDir copies the local directory at localDir to remoteDir on
	// the shell's substrate. ignore, if non-nil, is called with each
	// entry's path relative to localDir and may return true to skip it.
	UploadDir(localDir, remoteDir string, ignore func(relPath string) bool) error
	// TemporaryDir creates a new empty directory on the substrate and
	// returns its path along with a cleanup function that removes it
	// recursively. Callers should defer the cleanup immediately.
	TemporaryDir(prefix string) (dir string, cleanup func() error, err error)
	// Files returns a small convenience wrapper exposing cp/mkdir -p
	// built on top of Run.
	Files() *Files
	// Close releases the shell's resources. It is idempotent; once
	// closed, further Spawn/Run calls fail.
	Close() error
}

// File is the contract a Shell.Open result satisfies: the usual
// stream operations plus capability probes derived from the open mode.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Readable() bool
	Writable() bool
	Seekable() bool
}

// Acquire runs fn with shell and then unconditionally calls shell.Close,
// the Go equivalent of the scoped-acquisition entry/exit block spec.md
// §3 describes: Close() always runs, including when fn panics or
// returns an error.
func Acquire(shell Shell, fn func(Shell) error) (err error) {
	defer func() {
		if cerr := shell.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(shell)
}
