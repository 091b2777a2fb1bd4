// SPDX-License-Identifier: MPL-2.0

package iocapture

import "fmt"

// Decode converts captured bytes to text once draining has completed —
// there is no mid-stream partial decoding. Streaming sinks always
// receive raw bytes regardless of encoding; only the buffered result
// that ends up in ExecutionResult is decoded.
func Decode(encoding string, b []byte) (string, error) {
	switch encoding {
	case "utf8", "utf-8", "UTF-8":
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}
