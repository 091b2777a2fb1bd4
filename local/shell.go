// SPDX-License-Identifier: EPL-2.0

// Package local implements spur.Shell against the current operating
// system: it spawns children of the current process directly, using
// pipes or a pseudo-terminal to talk to them.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"

	"github.com/go-spur/spur"
	"github.com/go-spur/spur/internal/cleanup"
	"github.com/go-spur/spur/internal/iocapture"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "local"})

// Shell spawns children of the current process. The zero value is not
// usable; construct one with New.
type Shell struct {
	mu     sync.Mutex
	closed bool
}

// New returns a Shell bound to the local operating system.
func New() *Shell {
	return &Shell{}
}

// Close marks the shell closed. It is idempotent; after Close, Spawn and
// Run return an error.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Shell) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("local: shell is closed")
	}
	return nil
}

// Spawn starts argv as a child of the current process.
func (s *Shell) Spawn(argv []string, opts spur.CommandOptions) (spur.Process, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, errors.New("local: argv must be non-empty")
	}

	if opts.Cwd != "" {
		if err := validateWorkDir(opts.Cwd); err != nil {
			return nil, err
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if len(opts.Env) > 0 {
		env := os.Environ()
		for k, v := range opts.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}
	if opts.NewProcessGroup {
		applyProcessGroup(cmd)
	}

	proc, err := s.start(cmd, argv[0], opts)
	if err != nil {
		return nil, err
	}

	handle := cleanup.Register(proc, nil)
	cleanup.Watch(context.Background(), proc, handle)
	return proc, nil
}

// Run spawns argv and waits for it to complete.
func (s *Shell) Run(ctx context.Context, argv []string, opts spur.CommandOptions) (*spur.ExecutionResult, error) {
	p, err := s.Spawn(argv, opts)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

func (s *Shell) start(cmd *exec.Cmd, program string, opts spur.CommandOptions) (*Process, error) {
	if opts.UsePTY {
		return s.startPTY(cmd, program, opts)
	}
	return s.startPipes(cmd, program, opts)
}

func (s *Shell) startPipes(cmd *exec.Cmd, program string, opts spur.CommandOptions) (*Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, classifySpawnError(program, err)
	}

	ioh := iocapture.NewIoHandler(
		iocapture.Channel{In: stdoutPipe, Out: opts.Stdout},
		iocapture.Channel{In: stderrPipe, Out: opts.Stderr},
	)

	return newProcess(cmd, stdin, ioh, opts), nil
}

func (s *Shell) startPTY(cmd *exec.Cmd, program string, opts spur.CommandOptions) (*Process, error) {
	master, err := pty.Start(cmd)
	if err != nil {
		return nil, classifySpawnError(program, err)
	}

	// stderr is merged into stdout at the kernel level under a PTY; the
	// stderr channel is fed from an already-closed reader so it always
	// captures zero bytes, matching spec.md's contractual empty
	// StderrOutput.
	stderrReader, stderrWriter := io.Pipe()
	_ = stderrWriter.Close()

	ioh := iocapture.NewIoHandler(
		iocapture.Channel{In: master, Out: opts.Stdout, IsPTY: true},
		iocapture.Channel{In: stderrReader, Out: opts.Stderr},
	)

	p := newProcessWithPTY(cmd, master, ioh, opts)

	go func() {
		_, _ = p.Wait(context.Background())
		_ = master.Close()
	}()

	return p, nil
}

// validateWorkDir classifies cwd accessibility problems the way spec.md
// §4.4 requires: nonexistent or non-traversable directories both surface
// as CouldNotChangeDirectoryError, checked before argv[0] is resolved so
// a simultaneously-bad cwd and command report the cwd failure.
func validateWorkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &spur.CouldNotChangeDirectoryError{Directory: dir}
	}
	// Looking up "." inside dir needs search (execute) permission on dir.
	if _, err := os.Stat(dir + string(os.PathSeparator) + "."); err != nil {
		return &spur.CouldNotChangeDirectoryError{Directory: dir}
	}
	return nil
}

// classifySpawnError turns a failed cmd.Start() into a NoSuchCommandError
// when the cause was program resolution, and passes through any other
// error unchanged.
func classifySpawnError(program string, err error) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return &spur.NoSuchCommandError{Command: program}
	}
	if errors.Is(err, os.ErrNotExist) {
		return &spur.NoSuchCommandError{Command: program}
	}
	return err
}

// Open opens a local file for streaming I/O.
func (s *Shell) Open(path string, mode string) (spur.File, error) {
	return openLocalFile(path, mode)
}

// WriteFile writes contents to path in one call.
func (s *Shell) WriteFile(path string, contents []byte) error {
	return os.WriteFile(path, contents, 0o644)
}

// UploadFile copies localPath to remotePath, both on this machine.
func (s *Shell) UploadFile(localPath, remotePath string) error {
	return copyFile(localPath, remotePath)
}

// UploadDir recursively copies localDir to remoteDir, both on this
// machine, skipping any entry for which ignore returns true.
func (s *Shell) UploadDir(localDir, remoteDir string, ignore func(relPath string) bool) error {
	return copyDir(localDir, remoteDir, ignore)
}

// TemporaryDir creates a new local temporary directory.
func (s *Shell) TemporaryDir(prefix string) (string, func() error, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", nil, err
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

// Files returns the cp/mkdir -p convenience wrapper.
func (s *Shell) Files() *spur.Files {
	return spur.NewFiles(s)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func copyDir(src, dst string, ignore func(relPath string) bool) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if ignore != nil && ignore(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target)
	})
}
