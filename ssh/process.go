// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"

	"github.com/go-spur/spur"
	"github.com/go-spur/spur/internal/iocapture"
)

// Process is the spur.Process handle for a command spawned on an
// ssh.Shell's session channel.
type Process struct {
	shell   *Shell
	session *ssh.Session
	stdin   io.WriteCloser
	io      *iocapture.IoHandler
	opts    spur.CommandOptions

	pid     int
	havePID bool

	exited atomic.Bool

	mu     sync.Mutex
	waited bool
	result *spur.ExecutionResult
	err    error
}

func newProcess(shell *Shell, session *ssh.Session, stdin io.WriteCloser, ioh *iocapture.IoHandler, opts spur.CommandOptions, pid int, havePID bool) *Process {
	return &Process{shell: shell, session: session, stdin: stdin, io: ioh, opts: opts, pid: pid, havePID: havePID}
}

// IsRunning reports whether the channel's exit status is not yet ready.
func (p *Process) IsRunning() bool {
	return !p.exited.Load()
}

// Pid returns the child's PID, present iff CommandOptions.StorePID was set.
func (p *Process) Pid() (int, bool) {
	return p.pid, p.havePID
}

// StdinWrite writes to the session's stdin stream.
func (p *Process) StdinWrite(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// SendSignal delivers signal by running "kill -N PID" through the same
// shell. It requires the process to have been spawned with StorePID.
func (p *Process) SendSignal(signal int) error {
	if !p.havePID {
		return errors.New("ssh: SendSignal requires the process to have been spawned with StorePID")
	}
	_, err := p.shell.Run(context.Background(), []string{"kill", fmt.Sprintf("-%d", signal), strconv.Itoa(p.pid)}, spur.CommandOptions{})
	return err
}

// Wait drains captured output, waits for the session's exit status, and
// returns the result. It is idempotent.
func (p *Process) Wait(ctx context.Context) (*spur.ExecutionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.waited {
		return p.result, p.err
	}
	p.waited = true

	stdout, stderr, drainErr := p.io.Wait()
	waitErr := p.session.Wait()
	p.exited.Store(true)
	_ = p.session.Close()

	returnCode := 0
	var exitErr *ssh.ExitError
	if waitErr != nil {
		if errors.As(waitErr, &exitErr) {
			returnCode = exitErr.ExitStatus()
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
