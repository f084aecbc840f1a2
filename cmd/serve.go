package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// serveCmd keeps conductor running with its background services.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run conductor as a long-lived process",
	Long: `Runs conductor until interrupted.

While running, conductor:
  - serves Prometheus metrics on metrics.addr when it is configured
  - watches the workspaces/ directory when workspaces.watch is set, so edited
    workspace files are picked up without a restart

Configuration:
  conductor loads config.yaml from --config-path
  (default $HOME/.config/conductor). Workspace files live in the workspaces/
  subdirectory unless workspaces.dir says otherwise.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
