// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package iocapture

import (
	"errors"
	"io"
	"syscall"
)

// isBenignReadError reports whether err should be treated as a plain
// EOF rather than surfaced to the caller. Besides io.EOF itself, a PTY
// source raises EIO once its slave side has been closed by the exiting
// child; that is expected and must be swallowed. Non-PTY sources never
// get this treatment — an EIO there is a real error.
func isBenignReadError(err error, isPTY bool) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	if isPTY && errors.Is(err, syscall.EIO) {
		return true
	}
	return false
}
