/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at link time with -ldflags "-X".
var Version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tarc version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version := Version
		if version == "" {
			version = "(devel)"
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tarc %s\n", version)
	},
}

var docsCmd = &cobra.Command{
	Use:    "docs <dir>",
	Short:  "Write markdown documentation for every command",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return GenDocs(args[0])
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(docsCmd)
}
