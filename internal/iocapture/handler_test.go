// SPDX-License-Identifier: MPL-2.0

package iocapture

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewHandler_SelectsReadAtEndWhenNoSinkAndNotPTY(t *testing.T) {
	t.Parallel()
	h := NewHandler(Channel{In: strings.NewReader("hello")})
	if _, ok := h.(*readAtEnd); !ok {
		t.Fatalf("NewHandler = %T, want *readAtEnd", h)
	}
}

func TestNewHandler_SelectsContinuousReaderWithSink(t *testing.T) {
	t.Parallel()
	var sink bytes.Buffer
	h := NewHandler(Channel{In: strings.NewReader("hello"), Out: &sink})
	if _, ok := h.(*continuousReader); !ok {
		t.Fatalf("NewHandler = %T, want *continuousReader", h)
	}
}

func TestNewHandler_SelectsContinuousReaderForPTY(t *testing.T) {
	t.Parallel()
	h := NewHandler(Channel{In: strings.NewReader("hello"), IsPTY: true})
	if _, ok := h.(*continuousReader); !ok {
		t.Fatalf("NewHandler = %T, want *continuousReader", h)
	}
}

func TestReadAtEnd_Wait_ReturnsAllBytes(t *testing.T) {
	t.Parallel()
	h := NewHandler(Channel{In: strings.NewReader("hello world")})
	b, err := h.wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if string(b) != "hello world" {
		t.Errorf("wait() = %q, want %q", b, "hello world")
	}
}

func TestContinuousReader_TeesToSink(t *testing.T) {
	t.Parallel()
	var sink bytes.Buffer
	h := NewHandler(Channel{In: strings.NewReader("hello"), Out: &sink})
	b, err := h.wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if string(b) != "hello" {
		t.Errorf("captured = %q, want %q", b, "hello")
	}
	if sink.String() != "hello" {
		t.Errorf("sink = %q, want %q", sink.String(), "hello")
	}
}

type erroringReader struct{ err error }

func (r erroringReader) Read([]byte) (int, error) { return 0, r.err }

func TestContinuousReader_SwallowsBenignPTYError(t *testing.T) {
	t.Parallel()
	h := NewHandler(Channel{In: erroringReader{err: io.EOF}, IsPTY: true})
	b, err := h.wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(b) != 0 {
		t.Errorf("captured = %q, want empty", b)
	}
}

func TestContinuousReader_SurfacesNonBenignError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	h := NewHandler(Channel{In: erroringReader{err: boom}})
	_, err := h.wait()
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestIoHandler_Wait_ReturnsBothStreamsInOrder(t *testing.T) {
	t.Parallel()
	ioh := NewIoHandler(
		Channel{In: strings.NewReader("out-bytes")},
		Channel{In: strings.NewReader("err-bytes")},
	)
	stdout, stderr, err := ioh.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if string(stdout) != "out-bytes" {
		t.Errorf("stdout = %q", stdout)
	}
	if string(stderr) != "err-bytes" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestDecode_UTF8(t *testing.T) {
	t.Parallel()
	s, err := Decode("utf8", []byte("hello"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s != "hello" {
		t.Errorf("Decode = %q, want %q", s, "hello")
	}
}

func TestDecode_UnsupportedEncoding(t *testing.T) {
	t.Parallel()
	if _, err := Decode("latin1", []byte("hello")); err == nil {
		t.Error("expected an error for an unsupported encoding")
	}
}
