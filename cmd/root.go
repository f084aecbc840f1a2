package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/config"
	"conductor/internal/orchestrator"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (transition or restart failed).
	ExitCodeError = 1
	// ExitCodeUsage indicates invalid arguments, intents or configuration.
	ExitCodeUsage = 2
	// ExitCodeInterrupted indicates a restart that was paused or is
	// already in progress.
	ExitCodeInterrupted = 3
)

// rootCmd represents the base command for the conductor application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Drive service lifecycles on a remote control plane",
	Long: `conductor starts, stops, creates, updates and deletes the services of a
remote control plane and waits until each transition is confirmed.

It also restarts whole workspaces (zookeeper, broker, worker and topics) in
dependency order, limited to the requested scope.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "conductor version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var validation config.ValidationErrors
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, api.ErrInvalidIntent), errors.As(err, &validation):
		return ExitCodeUsage
	case errors.Is(err, composer.ErrPaused), errors.Is(err, orchestrator.ErrRestartInProgress):
		return ExitCodeInterrupted
	default:
		return ExitCodeError
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default $HOME/.config/conductor)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}
