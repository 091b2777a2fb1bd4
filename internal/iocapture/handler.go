// SPDX-License-Identifier: MPL-2.0

// Package iocapture drains stdout/stderr byte streams from a process into
// in-memory buffers, optionally tee-ing them to a caller-supplied sink as
// the bytes arrive. It is the shared capture pipeline both the local and
// ssh engines hand their process streams to.
package iocapture

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "iocapture"})

// Channel describes one stream to be drained: the source to read from,
// an optional sink to tee bytes into, and whether the source is a
// pseudo-terminal (which changes EOF/error handling, see handler
// selection in NewHandler).
type Channel struct {
	In    io.Reader
	Out   io.Writer // optional caller sink; nil if none was supplied
	IsPTY bool
}

// handler is the internal strategy a single Channel is drained with.
type handler interface {
	// start begins draining, if draining has to happen concurrently with
	// the caller's other work. ReadAtEnd is a no-op here.
	start()
	// wait blocks until draining is complete and returns the captured
	// bytes.
	wait() ([]byte, error)
}

// NewHandler selects ReadAtEnd when there is no sink and the source is
// not a PTY (a single blocking read at Wait time suffices), and
// ContinuousReader otherwise (a sink needs bytes as they arrive, and PTY
// reads need the byte-at-a-time EIO-swallowing treatment).
func NewHandler(ch Channel) handler {
	if ch.Out == nil && !ch.IsPTY {
		return &readAtEnd{in: ch.In}
	}
	h := &continuousReader{in: ch.In, out: ch.Out, isPTY: ch.IsPTY}
	h.start()
	return h
}

type readAtEnd struct {
	in io.Reader
}

func (r *readAtEnd) start() {}

func (r *readAtEnd) wait() ([]byte, error) {
	b, err := io.ReadAll(r.in)
	if err != nil && !isBenignReadError(err, false) {
		return b, err
	}
	return b, nil
}

// continuousReader drains its source one byte at a time on a detached
// goroutine, simultaneously appending each byte to an internal buffer and
// (when a sink is set) writing it to the sink. It terminates on EOF; on a
// PTY source an EIO raised after the remote side closes its slave is
// treated as EOF rather than surfaced, matching the real kernel PTY
// close race this package has to hide from callers.
type continuousReader struct {
	in    io.Reader
	out   io.Writer
	isPTY bool

	mu   sync.Mutex
	buf  bytes.Buffer
	err  error
	done chan struct{}
}

func (r *continuousReader) start() {
	r.done = make(chan struct{})
	go r.drain()
}

func (r *continuousReader) drain() {
	defer close(r.done)
	one := make([]byte, 1)
	for {
		n, err := r.in.Read(one)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(one[:n])
			r.mu.Unlock()
			if r.out != nil {
				if _, werr := r.out.Write(one[:n]); werr != nil {
					logger.Debug("sink write failed", "error", werr)
				}
			}
		}
		if err != nil {
			if !isBenignReadError(err, r.isPTY) {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}
	}
}

func (r *continuousReader) wait() ([]byte, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.buf.Bytes(), r.err
	}
	return r.buf.Bytes(), nil
}

// IoHandler owns the stdout and stderr drains for one process and joins
// on both when asked for the final captured output.
type IoHandler struct {
	stdout handler
	stderr handler
}

// NewIoHandler builds an IoHandler from the two channel descriptions.
func NewIoHandler(stdout, stderr Channel) *IoHandler {
	return &IoHandler{
		stdout: NewHandler(stdout),
		stderr: NewHandler(stderr),
	}
}

// Wait blocks until both drains finish and returns (stdout, stderr)
// captured bytes, in that order. The first drain error encountered (if
// any) is returned; both drains always run to completion regardless.
func (h *IoHandler) Wait() (stdout []byte, stderr []byte, err error) {
	stdout, outErr := h.stdout.wait()
	stderr, errErr := h.stderr.wait()
	if outErr != nil {
		return stdout, stderr, outErr
	}
	return stdout, stderr, errErr
}
