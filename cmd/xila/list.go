package main

import (
	"fmt"

	"github.com/mwantia/xila/boot"
	"github.com/spf13/cobra"
)

var mountsCmd = &cobra.Command{
	Use:   "mounts",
	Short: "List the configured mounts once booted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuiltin(cmd, "mounts")
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices [prefix]",
	Short: "List the registered devices once booted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := "devices"
		if len(args) == 1 {
			line += " " + args[0]
		}
		return runBuiltin(cmd, line)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "xila %s\n", version)
	},
}

func runBuiltin(cmd *cobra.Command, line string) error {
	return withSystem(cmd.Context(), func(s *boot.System) error {
		_, err := s.Execute(cmd.Context(), line)
		return err
	})
}
