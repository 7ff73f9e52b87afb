// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gift-engine build version",
	Long: `Version prints the version stamped by "mage build" (-X main.version),
followed by the Go toolchain and, when present, the VCS revision.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info, _ := debug.ReadBuildInfo()
		writeVersion(cmd.OutOrStdout(), version, info)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// writeVersion renders v and the revision recorded in info, if any.
func writeVersion(w io.Writer, v string, info *debug.BuildInfo) {
	fmt.Fprintf(w, "gift-engine %s (%s)\n", v, runtime.Version())
	if info == nil {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			fmt.Fprintf(w, "revision %s\n", s.Value)
		}
	}
}
