// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/go-spur/spur/internal/cleanup"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "spurctl"})

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "spurctl",
	Short: "Spawn and run commands on a local or SSH-reachable shell",
	Long: `spurctl is a small CLI built on top of the spur library. It runs a
command against a named SSH profile or against the local machine,
streaming output the same way regardless of which substrate answers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(profilesCmd)
}

func main() {
	cleanup.Install()
	if err := rootCmd.Execute(); err != nil {
		code := 1
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			code = svcErr.ExitCode
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}
