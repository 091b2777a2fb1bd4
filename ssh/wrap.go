// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/go-spur/spur"
)

// cwdFramingPrefix is the reserved byte prefix spec.md §6 sets aside on
// the wrapped session's stdout for cwd-change results.
const cwdFramingPrefix = "spur-cd: "

// readIntInitializationLine reads lines until a non-blank one appears,
// then parses it as an integer. Surrounding whitespace on the line is
// ignored, so "\n \n\t\t\n42\n" reads as 42.
func readIntInitializationLine(r *bufio.Reader) (int, error) {
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			n, perr := strconv.Atoi(trimmed)
			if perr != nil {
				return 0, &spur.CommandInitializationError{Line: trimmed}
			}
			return n, nil
		}
		if err != nil {
			return 0, &spur.CommandInitializationError{Line: trimmed}
		}
	}
}

// consumeCwdFraming reads lines until one begins with cwdFramingPrefix.
// Lines read before the marker are the cd command's own diagnostic
// output (its stderr, merged into the session's stdout); they are
// attached to the returned error when the change failed.
func consumeCwdFraming(r *bufio.Reader, cwd string) error {
	var captured strings.Builder
	for {
		line, err := r.ReadString('\n')
		if strings.HasPrefix(line, cwdFramingPrefix) {
			status := strings.TrimSpace(strings.TrimPrefix(line, cwdFramingPrefix))
			if status == "0" {
				return nil
			}
			return &spur.CouldNotChangeDirectoryError{Directory: cwd, Output: []byte(captured.String())}
		}
		captured.WriteString(line)
		if err != nil {
			return &spur.CouldNotChangeDirectoryError{Directory: cwd, Output: []byte(captured.String())}
		}
	}
}

// consumeFraming reads the in-band metadata a wrapped sh/tcsh command
// emits ahead of the user program's own stdout, in the order §4.3
// requires: PID line, then cwd framing, then the which-probe result.
// It leaves r positioned at the first byte of user output.
func consumeFraming(r *bufio.Reader, t ShellType, argv []string, opts wrapOptions) (pid int, havePID bool, err error) {
	if opts.storePID {
		pid, err = readIntInitializationLine(r)
		if err != nil {
			return 0, false, err
		}
		havePID = true
	}

	if opts.cwd != "" {
		if err := consumeCwdFraming(r, opts.cwd); err != nil {
			return 0, false, err
		}
	}

	if t.supportsWhich {
		status, err := readIntInitializationLine(r)
		if err != nil {
			return 0, false, err
		}
		if status != 0 {
			return 0, false, &spur.NoSuchCommandError{Command: argv[0]}
		}
	}

	return pid, havePID, nil
}
