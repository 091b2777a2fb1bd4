// SPDX-License-Identifier: EPL-2.0

package local

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/go-spur/spur"
	"github.com/go-spur/spur/internal/iocapture"
)

// Process is the spur.Process handle for a child spawned by local.Shell.
type Process struct {
	cmd   *exec.Cmd
	stdin io.Writer
	io    *iocapture.IoHandler
	opts  spur.CommandOptions
	isPTY bool

	exited atomic.Bool

	mu     sync.Mutex
	waited bool
	result *spur.ExecutionResult
	err    error
}

func newProcess(cmd *exec.Cmd, stdin io.Writer, ioh *iocapture.IoHandler, opts spur.CommandOptions) *Process {
	return &Process{cmd: cmd, stdin: stdin, io: ioh, opts: opts}
}

func newProcessWithPTY(cmd *exec.Cmd, master io.Writer, ioh *iocapture.IoHandler, opts spur.CommandOptions) *Process {
	return &Process{cmd: cmd, stdin: master, io: ioh, opts: opts, isPTY: true}
}

// IsRunning reports whether the child has not yet been reaped.
func (p *Process) IsRunning() bool {
	return !p.exited.Load()
}

// Pid returns the child's PID, present iff CommandOptions.StorePID was set.
func (p *Process) Pid() (int, bool) {
	if !p.opts.StorePID || p.cmd.Process == nil {
		return 0, false
	}
	return p.cmd.Process.Pid, true
}

// StdinWrite writes to the child's standard input.
func (p *Process) StdinWrite(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// SendSignal delivers an OS signal to the child. It requires the process
// to have been spawned with StorePID set, matching the SSH engine's
// parity requirement even though the local engine could in principle
// signal any process it started.
func (p *Process) SendSignal(signal int) error {
	if !p.opts.StorePID {
		return errors.New("local: SendSignal requires the process to have been spawned with StorePID")
	}
	if p.cmd.Process == nil {
		return errors.New("local: process has not started")
	}
	return p.cmd.Process.Signal(syscall.Signal(signal))
}

// Wait drains captured output, reaps the child, and returns its result.
// It is idempotent: subsequent calls return the cached result.
func (p *Process) Wait(ctx context.Context) (*spur.ExecutionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.waited {
		return p.result, p.err
	}
	p.waited = true

	stdout, stderr, drainErr := p.io.Wait()
	waitErr := p.cmd.Wait()
	p.exited.Store(true)

	returnCode := 0
	var exitErr *exec.ExitError
	if waitErr != nil {
		if errors.As(waitErr, &exitErr) {
			returnCode = exitErr.ExitCode()
		} else {
			err := waitErr
			if drainErr != nil {
				err = drainErr
			}
			p.err = err
			return nil, err
		}
	}

	text := p.opts.Encoding != ""
	var outputText, stderrText string
	if text {
		var err error
		if outputText, err = iocapture.Decode(p.opts.Encoding, stdout); err != nil {
			p.err = err
			return nil, err
		}
		if stderrText, err = iocapture.Decode(p.opts.Encoding, stderr); err != nil {
			p.err = err
			return nil, err
		}
	}

	res, err := spur.NewResult(returnCode, p.opts.AllowError, text, stdout, stderr, outputText, stderrText)
	p.result, p.err = res, err
	return res, err
}
