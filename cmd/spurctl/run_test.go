// SPDX-License-Identifier: MPL-2.0

package main

import (
	"testing"

	"github.com/go-spur/spur/cmd/spurctl/internal/config"
	spurssh "github.com/go-spur/spur/ssh"
)

func TestParseEnvFlags(t *testing.T) {
	t.Parallel()
	env, err := parseEnvFlags([]string{"NAME=Bob", "PATH=/usr/bin"})
	if err != nil {
		t.Fatalf("parseEnvFlags: %v", err)
	}
	if env["NAME"] != "Bob" || env["PATH"] != "/usr/bin" {
		t.Errorf("env = %v", env)
	}
}

func TestParseEnvFlags_RejectsMissingEquals(t *testing.T) {
	t.Parallel()
	if _, err := parseEnvFlags([]string{"NAME"}); err == nil {
		t.Error("expected an error for an entry without '='")
	}
}

func TestParseEnvFlags_Empty(t *testing.T) {
	t.Parallel()
	env, err := parseEnvFlags(nil)
	if err != nil {
		t.Fatalf("parseEnvFlags: %v", err)
	}
	if env != nil {
		t.Errorf("env = %v, want nil", env)
	}
}

func TestParseHostKeyPolicy(t *testing.T) {
	t.Parallel()
	cases := map[config.HostKeyPolicyName]spurssh.HostKeyPolicy{
		"":         spurssh.HostKeyRaise,
		"raise":    spurssh.HostKeyRaise,
		"warn":     spurssh.HostKeyWarn,
		"accept":   spurssh.HostKeyAcceptBlindly,
		"auto-add": spurssh.HostKeyAutoAdd,
	}
	for name, want := range cases {
		if got := parseHostKeyPolicy(name); got != want {
			t.Errorf("parseHostKeyPolicy(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseShellType(t *testing.T) {
	t.Parallel()
	if got := parseShellType("minimal"); got.String() != spurssh.Minimal.String() {
		t.Errorf("parseShellType(minimal) = %v", got)
	}
	if got := parseShellType("tcsh"); got.String() != spurssh.Tcsh.String() {
		t.Errorf("parseShellType(tcsh) = %v", got)
	}
	if got := parseShellType(""); got.String() != spurssh.Sh.String() {
		t.Errorf("parseShellType(\"\") = %v, want sh", got)
	}
}
