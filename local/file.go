// SPDX-License-Identifier: EPL-2.0

package local

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-spur/spur"
)

// localFile adapts *os.File to the spur.File contract.
type localFile struct {
	f                            *os.File
	readable, writable, seekable bool
}

func openLocalFile(path, mode string) (spur.File, error) {
	flag, readable, writable, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &localFile{f: f, readable: readable, writable: writable, seekable: true}, nil
}

// parseMode follows the alphabet spec.md §6 specifies: r/w/a/+/b, where
// "b" selects raw byte I/O and its absence selects text. Go's os.File is
// always byte-oriented, so "b" only affects whether callers should treat
// the stream as opaque bytes or apply their own text decoding; it does
// not change which os.OpenFile flags are used.
func parseMode(mode string) (flag int, readable, writable bool, err error) {
	plus := strings.Contains(mode, "+")
	switch {
	case strings.Contains(mode, "r"):
		readable = true
		flag = os.O_RDONLY
		if plus {
			flag, writable = os.O_RDWR, true
		}
	case strings.Contains(mode, "w"):
		writable = true
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if plus {
			flag, readable = os.O_RDWR|os.O_CREATE|os.O_TRUNC, true
		}
	case strings.Contains(mode, "a"):
		writable = true
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if plus {
			flag, readable = os.O_RDWR|os.O_CREATE|os.O_APPEND, true
		}
	default:
		return 0, false, false, fmt.Errorf("local: invalid open mode %q", mode)
	}
	return flag, readable, writable, nil
}

func (lf *localFile) Read(p []byte) (int, error)  { return lf.f.Read(p) }
func (lf *localFile) Write(p []byte) (int, error) { return lf.f.Write(p) }
func (lf *localFile) Seek(offset int64, whence int) (int64, error) {
	return lf.f.Seek(offset, whence)
}
func (lf *localFile) Close() error   { return lf.f.Close() }
func (lf *localFile) Readable() bool { return lf.readable }
func (lf *localFile) Writable() bool { return lf.writable }
func (lf *localFile) Seekable() bool { return lf.seekable }
