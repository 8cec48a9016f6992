package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"domainscout/internal/config"
	"domainscout/internal/server"
)

// newServeCmd creates the 'serve' subcommand, which runs the full service:
// HTTP API, dispatcher, and worker pool.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the discovery API server and worker pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app, err := server.Build(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}
