// SPDX-License-Identifier: MPL-2.0

//go:build windows

package iocapture

import (
	"errors"
	"io"
)

// isBenignReadError reports whether err is a plain EOF. Windows has no
// PTY slave-close EIO quirk to hide, so only io.EOF is treated as
// benign here.
func isBenignReadError(err error, isPTY bool) bool {
	return errors.Is(err, io.EOF)
}
