// SPDX-License-Identifier: MPL-2.0

package cleanup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-spur/spur"
)

// fakeProcess is a minimal spur.Process double for exercising the
// registry without spawning anything real.
type fakeProcess struct {
	mu      sync.Mutex
	running bool
	signals []int
	waitErr error
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{running: true}
}

func (p *fakeProcess) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *fakeProcess) Pid() (int, bool) { return 1234, true }

func (p *fakeProcess) StdinWrite(b []byte) (int, error) { return len(b), nil }

func (p *fakeProcess) SendSignal(signal int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, signal)
	p.running = false
	return nil
}

func (p *fakeProcess) Wait(ctx context.Context) (*spur.ExecutionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.waitErr != nil {
		return nil, p.waitErr
	}
	return &spur.ExecutionResult{}, nil
}

func (p *fakeProcess) sawSignal(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.signals {
		if s == n {
			return true
		}
	}
	return false
}

func TestRegister_Deregister_RemovesFromDrain(t *testing.T) {
	t.Parallel()
	p := newFakeProcess()
	handle := Register(p, nil)
	handle.Deregister()

	Drain(context.Background())
	if p.sawSignal(SIGKILL) {
		t.Error("Drain should not touch a deregistered process")
	}
}

func TestDrain_SendsSIGKILLWithoutCleanupCommand(t *testing.T) {
	t.Parallel()
	p := newFakeProcess()
	Register(p, nil)

	Drain(context.Background())

	if !p.sawSignal(SIGKILL) {
		t.Error("expected Drain to SIGKILL a still-running child with no cleanup command")
	}
}

func TestDrain_RunsCleanupCommandBeforeSignaling(t *testing.T) {
	t.Parallel()
	p := newFakeProcess()
	var ranCleanup bool
	Register(p, func(ctx context.Context) error {
		ranCleanup = true
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return nil
	})

	Drain(context.Background())

	if !ranCleanup {
		t.Error("expected Drain to run the cleanup command")
	}
	if p.sawSignal(SIGKILL) {
		t.Error("a successful cleanup command should not also be SIGKILLed")
	}
}

func TestDrain_SkipsProcessesAlreadyStopped(t *testing.T) {
	t.Parallel()
	p := newFakeProcess()
	p.running = false
	Register(p, nil)

	Drain(context.Background())

	if p.sawSignal(SIGKILL) {
		t.Error("Drain should not signal a process that already stopped")
	}
}

func TestWatch_IgnoresRunProcessError(t *testing.T) {
	t.Parallel()
	p := newFakeProcess()
	p.waitErr = &spur.RunProcessError{ReturnCode: 1}
	handle := Register(p, nil)

	// Watch spawns its own background goroutine; a RunProcessError from
	// Wait should be treated as an ordinary completed run, not a lost
	// fault, so this must not reach the os.Exit(1) path.
	Watch(context.Background(), p, handle)
	time.Sleep(50 * time.Millisecond)
}

func TestWatch_DeregistersOnRunProcessError(t *testing.T) {
	p := newFakeProcess()
	p.waitErr = &spur.RunProcessError{ReturnCode: 1}
	handle := Register(p, nil)

	Watch(context.Background(), p, handle)
	time.Sleep(50 * time.Millisecond)

	// p.running is still true (Wait never flips it); Drain would SIGKILL
	// it if it were still in the registry, so the absence of a signal
	// proves Watch already deregistered it on the RunProcessError path.
	Drain(context.Background())
	if p.sawSignal(SIGKILL) {
		t.Error("expected Watch to have already deregistered the process after a RunProcessError")
	}
}

func TestWatch_DeregistersOnCleanExit(t *testing.T) {
	p := newFakeProcess()
	handle := Register(p, nil)

	Watch(context.Background(), p, handle)
	time.Sleep(50 * time.Millisecond)

	Drain(context.Background())
	if p.sawSignal(SIGKILL) {
		t.Error("expected Watch to have already deregistered the process after a clean exit")
	}
}
