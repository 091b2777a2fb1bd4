// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"strings"
	"testing"

	"github.com/go-spur/spur"
)

func TestQuote_EscapesInteriorSingleQuotes(t *testing.T) {
	t.Parallel()
	got := quote(`it's`)
	want := `'it'\''s'`
	if got != want {
		t.Errorf("quote(%q) = %q, want %q", `it's`, got, want)
	}
}

func TestSh_GenerateRunCommand_FullFraming(t *testing.T) {
	t.Parallel()
	cmd, err := Sh.GenerateRunCommand([]string{"echo", "hi"}, spur.CommandOptions{
		StorePID: true,
		Cwd:      "/tmp",
		Env:      map[string]string{"NAME": "Bob"},
	})
	if err != nil {
		t.Fatalf("GenerateRunCommand: %v", err)
	}

	for _, want := range []string{
		"echo $$",
		"cd '/tmp' 2>&1 || { echo '\\n'spur-cd: $?; exit 1; }",
		"echo '\\n'spur-cd: 0",
		"export NAME='Bob'",
		"command -v 'echo'",
		"exec 'echo' 'hi'",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command %q does not contain %q", cmd, want)
		}
	}

	idxPid := strings.Index(cmd, "echo $$")
	idxCwd := strings.Index(cmd, "spur-cd")
	idxEnv := strings.Index(cmd, "export NAME")
	idxWhich := strings.Index(cmd, "command -v")
	idxExec := strings.Index(cmd, "exec 'echo'")
	if !(idxPid < idxCwd && idxCwd < idxEnv && idxEnv < idxWhich && idxWhich < idxExec) {
		t.Errorf("framing out of order: %q", cmd)
	}
}

func TestSh_GenerateRunCommand_NewProcessGroup(t *testing.T) {
	t.Parallel()
	cmd, err := Sh.GenerateRunCommand([]string{"sleep", "1"}, spur.CommandOptions{NewProcessGroup: true})
	if err != nil {
		t.Fatalf("GenerateRunCommand: %v", err)
	}
	if !strings.Contains(cmd, "setsid exec 'sleep' '1'") {
		t.Errorf("command = %q, want setsid exec form", cmd)
	}
}

func TestMinimal_GenerateRunCommand_NoFraming(t *testing.T) {
	t.Parallel()
	cmd, err := Minimal.GenerateRunCommand([]string{"echo", "hi"}, spur.CommandOptions{})
	if err != nil {
		t.Fatalf("GenerateRunCommand: %v", err)
	}
	if cmd != "'echo' 'hi'" {
		t.Errorf("command = %q, want %q", cmd, "'echo' 'hi'")
	}
}

func TestMinimal_RejectsFramingOptions(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts spur.CommandOptions
		want string
	}{
		{"store_pid", spur.CommandOptions{StorePID: true}, "store_pid"},
		{"cwd", spur.CommandOptions{Cwd: "/tmp"}, "cwd"},
		{"update_env", spur.CommandOptions{Env: map[string]string{"A": "b"}}, "update_env"},
		{"new_process_group", spur.CommandOptions{NewProcessGroup: true}, "new_process_group"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Minimal.GenerateRunCommand([]string{"echo"}, c.opts)
			var uae *spur.UnsupportedArgumentError
			if err == nil {
				t.Fatal("expected UnsupportedArgumentError, got nil")
			}
			if uae, _ = err.(*spur.UnsupportedArgumentError); uae == nil {
				t.Fatalf("err = %v, want *spur.UnsupportedArgumentError", err)
			}
			want := "'" + c.want + "' is not supported when using a minimal shell"
			if uae.Error() != want {
				t.Errorf("Error() = %q, want %q", uae.Error(), want)
			}
		})
	}
}

func TestMinimal_AcceptsEmptyEnv(t *testing.T) {
	t.Parallel()
	if _, err := Minimal.GenerateRunCommand([]string{"echo"}, spur.CommandOptions{Env: map[string]string{}}); err != nil {
		t.Errorf("empty Env should be accepted, got %v", err)
	}
}

func TestTcsh_GenerateRunCommand_UsesTcshOperators(t *testing.T) {
	t.Parallel()
	cmd, err := Tcsh.GenerateRunCommand([]string{"echo", "hi"}, spur.CommandOptions{
		Cwd: "/tmp",
		Env: map[string]string{"NAME": "Bob"},
	})
	if err != nil {
		t.Fatalf("GenerateRunCommand: %v", err)
	}
	for _, want := range []string{"|& cat", "set NAME='Bob'", ">& /dev/null"} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command %q does not contain %q", cmd, want)
		}
	}
}
