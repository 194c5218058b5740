// Package main provides the entry point for the pulse CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teammetrics/pulse/cmd/pulse/commands"
	"github.com/teammetrics/pulse/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "pulse - engineering activity metrics collector",
		Long: `pulse collects pull request, release, and issue-tracker activity for a
set of teams and computes DORA metrics (deployment frequency, lead time
for changes, change failure rate, and mean time to restore) plus a
per-team composite score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewCollectCommand())
	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCodeFor(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "pulse %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
