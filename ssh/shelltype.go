// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-spur/spur"
)

// ShellType is a value object encapsulating how a single command line is
// wrapped into the one command string an SSH session channel accepts,
// and which CommandOptions fields that wrapping can express. It is a
// value, not a polymorphic type hierarchy: the three variants below
// differ only in the function they carry.
type ShellType struct {
	name          string
	supportsWhich bool
	generate      func(t ShellType, argv []string, opts wrapOptions) (string, error)
}

// wrapOptions carries the subset of spur.CommandOptions the wrapping
// protocol cares about.
type wrapOptions struct {
	storePID        bool
	cwd             string
	env             map[string]string
	newProcessGroup bool
}

func fromCommandOptions(opts spur.CommandOptions) wrapOptions {
	return wrapOptions{
		storePID:        opts.StorePID,
		cwd:             opts.Cwd,
		env:             opts.Env,
		newProcessGroup: opts.NewProcessGroup,
	}
}

// SupportsWhich reports whether this ShellType probes for argv[0]'s
// existence before handing control to it.
func (t ShellType) SupportsWhich() bool { return t.supportsWhich }

// String returns the shell type's name.
func (t ShellType) String() string { return t.name }

// GenerateRunCommand builds the composite command string to send as the
// session's single command.
func (t ShellType) GenerateRunCommand(argv []string, opts spur.CommandOptions) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("ssh: argv must be non-empty")
	}
	return t.generate(t, argv, fromCommandOptions(opts))
}

var (
	// Sh is the default ShellType: full PID/cwd/env/which framing built
	// for a POSIX sh-compatible remote shell.
	Sh = ShellType{name: "sh", supportsWhich: true, generate: generateShCommand}

	// Minimal performs no wrapping at all: the argv is quoted and joined
	// verbatim. It rejects any option that would require framing.
	Minimal = ShellType{name: "minimal", supportsWhich: false, generate: generateMinimalCommand}

	// Tcsh mirrors Sh using tcsh's own operators (|&, set, >&). The
	// contributed source this is grounded on tags it as untested;
	// framing parity with Sh should not be assumed.
	Tcsh = ShellType{name: "tcsh", supportsWhich: true, generate: generateTcshCommand}
)

func generateMinimalCommand(_ ShellType, argv []string, opts wrapOptions) (string, error) {
	if opts.storePID {
		return "", &spur.UnsupportedArgumentError{Argument: "store_pid"}
	}
	if opts.cwd != "" {
		return "", &spur.UnsupportedArgumentError{Argument: "cwd"}
	}
	if len(opts.env) > 0 {
		return "", &spur.UnsupportedArgumentError{Argument: "update_env"}
	}
	if opts.newProcessGroup {
		return "", &spur.UnsupportedArgumentError{Argument: "new_process_group"}
	}
	return strings.Join(quoteAll(argv), " "), nil
}

func generateShCommand(t ShellType, argv []string, opts wrapOptions) (string, error) {
	var commands []string

	if opts.storePID {
		commands = append(commands, "echo $$")
	}

	if opts.cwd != "" {
		commands = append(commands,
			fmt.Sprintf("cd %s 2>&1 || { echo '\\n'spur-cd: $?; exit 1; }", quote(opts.cwd)),
			"echo '\\n'spur-cd: 0",
		)
	}

	for _, key := range sortedKeys(opts.env) {
		commands = append(commands, fmt.Sprintf("export %s=%s", key, quote(opts.env[key])))
	}

	if t.supportsWhich {
		commands = append(commands, generateWhichCommand(argv[0]))
	}

	commands = append(commands, execCommand(argv, opts.newProcessGroup))

	return strings.Join(commands, "; "), nil
}

func generateWhichCommand(command string) string {
	probe := fmt.Sprintf("{ command -v %s || which %s; }", quote(command), quote(command))
	return fmt.Sprintf("{ %s >/dev/null 2>&1 && echo 0; } || { echo $?; exit 1; }", probe)
}

func generateTcshCommand(t ShellType, argv []string, opts wrapOptions) (string, error) {
	var commands []string

	if opts.storePID {
		commands = append(commands, "echo $$")
	}

	if opts.cwd != "" {
		commands = append(commands,
			fmt.Sprintf("cd %s |& cat || ( echo '\\n'spur-cd: $?; exit 1; )", quote(opts.cwd)),
			"echo '\\n'spur-cd: 0",
		)
	}

	for _, key := range sortedKeys(opts.env) {
		commands = append(commands, fmt.Sprintf("set %s=%s", key, quote(opts.env[key])))
	}

	if t.supportsWhich {
		commands = append(commands, generateTcshWhichCommand(argv[0]))
	}

	commands = append(commands, execCommand(argv, opts.newProcessGroup))

	return strings.Join(commands, "; "), nil
}

func generateTcshWhichCommand(command string) string {
	probe := fmt.Sprintf("( command -v %s >& /dev/null || which %s >& /dev/null )", quote(command), quote(command))
	return fmt.Sprintf("( %s && echo 0 ) || ( echo $?; exit 1 )", probe)
}

func execCommand(argv []string, newProcessGroup bool) string {
	cmd := "exec " + strings.Join(quoteAll(argv), " ")
	if newProcessGroup {
		cmd = "setsid " + cmd
	}
	return cmd
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
