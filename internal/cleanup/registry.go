// SPDX-License-Identifier: MPL-2.0

// Package cleanup implements the process-wide registry of live children
// spawned through a spur.Shell, so that if the host process exits while
// a child is still running, the child is not left behind.
//
// Go has no language-level atexit hook equivalent to the one spec.md
// describes; callers that want that guarantee call Install once near
// the start of main (see cmd/spurctl), which arranges for Drain to run
// on SIGINT/SIGTERM in addition to whatever explicit Drain/Close calls
// the caller already makes.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/go-spur/spur"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cleanup"})

// SIGKILL is declared here (rather than imported from the syscall
// package at call sites) so non-unix builds of this package still
// compile; SendSignal on the Process interface takes a plain int.
const SIGKILL = int(syscall.SIGKILL)

// CleanupFunc tears a registered child down. It is run through the same
// Shell the child was spawned from, per spec.md §4.7.
type CleanupFunc func(ctx context.Context) error

type entry struct {
	process spur.Process
	cleanup CleanupFunc

	mu     sync.Mutex
	killed bool
}

func (e *entry) markKilled() {
	e.mu.Lock()
	e.killed = true
	e.mu.Unlock()
}

func (e *entry) isKilled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.killed
}

// Handle lets a caller deregister a child once it has been waited on
// normally, so Drain does not act on processes that already finished
// through the ordinary Wait path.
type Handle struct {
	entry *entry
}

// Deregister removes the associated child from the registry.
func (h *Handle) Deregister() {
	registry.remove(h.entry)
}

type registryT struct {
	mu      sync.Mutex
	entries []*entry
}

var registry = &registryT{}

func (r *registryT) remove(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *registryT) snapshot() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Register adds process to the process-wide registry. cleanup may be nil,
// in which case Drain sends SIGKILL directly instead of running a
// teardown command. The returned Handle should be used to deregister the
// child once it has exited through the caller's normal Wait path.
func Register(process spur.Process, cleanup CleanupFunc) *Handle {
	e := &entry{process: process, cleanup: cleanup}
	registry.mu.Lock()
	registry.entries = append(registry.entries, e)
	registry.mu.Unlock()
	return &Handle{entry: e}
}

// Watch spawns a background goroutine that waits on process and, if Wait
// returns an error other than *spur.RunProcessError while the process
// was never marked killed by Drain, treats that as a lost fault: it logs
// a diagnostic, force-drains the registry, and exits the host process
// with status 1. This is the safety net spec.md §4.7 describes for a
// drain task whose error would otherwise be silently lost because no
// caller ever awaited the process.
//
// On every other path — a clean exit or an ordinary non-zero exit
// reported as *spur.RunProcessError — the process has already run to
// completion by the time Wait returns, so Watch deregisters it itself;
// otherwise a successfully-waited child would stay in the registry for
// the life of the host process.
func Watch(ctx context.Context, process spur.Process, handle *Handle) {
	go func() {
		_, err := process.Wait(ctx)
		if err == nil {
			handle.Deregister()
			return
		}
		if _, ok := err.(*spur.RunProcessError); ok {
			handle.Deregister()
			return
		}
		if handle.entry.isKilled() {
			return
		}
		logger.Error("unrecovered error from background process wait", "error", err)
		Drain(context.Background())
		os.Exit(1)
	}()
}

// Drain runs the teardown pass spec.md §4.7 describes: for every
// still-running child, run its cleanup command (if any) through its
// owning shell, or else send SIGKILL directly. A cleanup command that
// itself fails with a NoSuchCommandError or RunProcessError forces a
// SIGKILL, logs a diagnostic, restarts the drain (to pick up any
// children the failing cleanup command's own execution registered), and
// terminates the host process with status 1.
func Drain(ctx context.Context) {
	failed := false
	for {
		entries := registry.snapshot()
		if len(entries) == 0 {
			break
		}

		restart := false
		for _, e := range entries {
			if !e.process.IsRunning() {
				registry.remove(e)
				continue
			}

			if e.cleanup != nil {
				if err := e.cleanup(ctx); err != nil {
					if isCleanupFailure(err) {
						e.markKilled()
						_ = e.process.SendSignal(SIGKILL)
						logger.Error("cleanup command failed, killed child", "error", err)
						registry.remove(e)
						restart = true
						continue
					}
				}
				e.markKilled()
				registry.remove(e)
				continue
			}

			e.markKilled()
			if err := e.process.SendSignal(SIGKILL); err != nil {
				if _, ok := err.(*spur.RunProcessError); !ok {
					logger.Debug("signal delivery during drain failed", "error", err)
				}
			}
			registry.remove(e)
		}

		if !restart {
			break
		}
		failed = true
	}
	if failed {
		fmt.Fprintln(os.Stderr, "spur: forced child teardown after cleanup failure")
		os.Exit(1)
	}
}

func isCleanupFailure(err error) bool {
	switch err.(type) {
	case *spur.NoSuchCommandError, *spur.RunProcessError:
		return true
	default:
		return false
	}
}

var installOnce sync.Once

// Install arranges for Drain to run when the process receives SIGINT or
// SIGTERM, the closest Go equivalent to the atexit hook spec.md §4.7
// describes. It is safe to call more than once; only the first call has
// an effect.
func Install() {
	installOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-ch
			Drain(context.Background())
			os.Exit(1)
		}()
	})
}
