// Package cmd defines and implements the CLI commands for the domainscout
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domainscout",
		Short: "Keyword-driven domain discovery over Common Crawl and search dorks.",
		Long: `domainscout scans Common Crawl WET/WAT archives and search-engine
results for pages matching a keyword set, scores the domains they belong to,
and upserts the ranked candidates into a catalog for review.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newKeywordsCmd())
	cmd.AddCommand(newUploadCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
