// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-spur/spur"
	"github.com/go-spur/spur/cmd/spurctl/internal/config"
	"github.com/go-spur/spur/local"
	spurssh "github.com/go-spur/spur/ssh"
)

var (
	runProfile string
	runCwd     string
	runPTY     bool
	runEnv     []string
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command locally or against a named SSH profile",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runProfile, "profile", "", "named SSH profile to run against; omitted means run locally")
	runCmd.Flags().StringVar(&runCwd, "cwd", "", "working directory override")
	runCmd.Flags().BoolVar(&runPTY, "pty", false, "allocate a pseudo-terminal")
	runCmd.Flags().StringArrayVar(&runEnv, "env", nil, "KEY=VALUE environment overlay entries, repeatable")
}

func runRun(cmd *cobra.Command, args []string) error {
	shell, err := buildShell(runProfile)
	if err != nil {
		return &ServiceError{Err: err, ExitCode: 1}
	}
	defer shell.Close()

	env, err := parseEnvFlags(runEnv)
	if err != nil {
		return &ServiceError{Err: err, ExitCode: 2}
	}

	opts := spur.CommandOptions{
		Cwd:    runCwd,
		Env:    env,
		UsePTY: runPTY,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}

	res, err := shell.Run(context.Background(), args, opts)
	if err != nil {
		var rpe *spur.RunProcessError
		if errors.As(err, &rpe) {
			return &ServiceError{Err: err, ExitCode: rpe.ReturnCode}
		}
		return &ServiceError{Err: err, ExitCode: 1}
	}
	logger.Debug("command finished", "return_code", res.ReturnCode)
	return nil
}

func parseEnvFlags(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --env entry %q, want KEY=VALUE", e)
		}
		env[key] = value
	}
	return env, nil
}

// buildShell returns a local.Shell when profileName is empty, or an
// ssh.Shell configured from the named profile otherwise.
func buildShell(profileName string) (spur.Shell, error) {
	if profileName == "" {
		return local.New(), nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	profile, ok := cfg.Profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("no such profile: %s", profileName)
	}

	sshCfg := spurssh.NewConfig(profile.Hostname)
	if profile.Port != 0 {
		sshCfg.Port = profile.Port
	}
	sshCfg.Username = profile.Username
	sshCfg.Password = profile.Password
	sshCfg.PrivateKeyFile = profile.PrivateKeyFile
	sshCfg.LookForKeys = profile.LookForKeys
	sshCfg.LoadSystemHostKeys = profile.LoadSystemHostKeys
	if profile.ConnectTimeout != 0 {
		sshCfg.ConnectTimeout = profile.ConnectTimeout
	} else {
		sshCfg.ConnectTimeout = 60 * time.Second
	}
	sshCfg.HostKeyPolicy = parseHostKeyPolicy(profile.HostKeyPolicy)
	sshCfg.ShellType = parseShellType(profile.ShellType)

	return spurssh.New(sshCfg), nil
}

func parseHostKeyPolicy(name config.HostKeyPolicyName) spurssh.HostKeyPolicy {
	switch strings.ToLower(string(name)) {
	case "warn":
		return spurssh.HostKeyWarn
	case "accept", "accept-blindly":
		return spurssh.HostKeyAcceptBlindly
	case "auto-add", "auto_add":
		return spurssh.HostKeyAutoAdd
	default:
		return spurssh.HostKeyRaise
	}
}

func parseShellType(name config.ShellTypeName) spurssh.ShellType {
	switch strings.ToLower(string(name)) {
	case "minimal":
		return spurssh.Minimal
	case "tcsh":
		return spurssh.Tcsh
	default:
		return spurssh.Sh
	}
}
