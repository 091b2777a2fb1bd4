// SPDX-License-Identifier: EPL-2.0

package ssh

import "runtime/debug"

// stackTrace captures the current goroutine's stack for attachment to a
// ConnectionError. Go has no equivalent of a Python traceback string;
// this is a deliberate, narrower substitute — see DESIGN.md.
func stackTrace() string {
	return string(debug.Stack())
}
