// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-spur/spur/cmd/spurctl/internal/config"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage named SSH connection profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured profile names",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return &ServiceError{Err: err, ExitCode: 1}
		}
		if len(cfg.Profiles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no profiles configured")
			return nil
		}
		for name, p := range cfg.Profiles {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s@%s:%d\n", name, p.Username, p.Hostname, p.Port)
		}
		return nil
	},
}

var (
	addHostname string
	addPort     int
	addUsername string
	addPassword string
	addKeyFile  string
)

var profilesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a named profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return &ServiceError{Err: err, ExitCode: 1}
		}
		cfg.Profiles[args[0]] = config.Profile{
			Hostname:           addHostname,
			Port:               addPort,
			Username:           addUsername,
			Password:           addPassword,
			PrivateKeyFile:     addKeyFile,
			LookForKeys:        true,
			LoadSystemHostKeys: true,
		}
		if err := config.Save(cfg); err != nil {
			return &ServiceError{Err: err, ExitCode: 1}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved profile %q\n", args[0])
		return nil
	},
}

func init() {
	profilesAddCmd.Flags().StringVar(&addHostname, "hostname", "", "remote hostname (required)")
	profilesAddCmd.Flags().IntVar(&addPort, "port", 22, "remote port")
	profilesAddCmd.Flags().StringVar(&addUsername, "username", "", "remote username")
	profilesAddCmd.Flags().StringVar(&addPassword, "password", "", "password authentication")
	profilesAddCmd.Flags().StringVar(&addKeyFile, "private-key-file", "", "private key file path")
	_ = profilesAddCmd.MarkFlagRequired("hostname")

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesAddCmd)
}
