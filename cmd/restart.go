package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/pkg/logging"
)

var (
	restartOutput            outputOptions
	restartScope             string
	restartZookeeperSettings []string
	restartBrokerSettings    []string
	restartWorkerSettings    []string
)

var restartCmd = &cobra.Command{
	Use:   "restart WORKSPACE",
	Short: "Restart the service stack of a workspace",
	Long: `Restart the services of a workspace in dependency order.

The worker is stopped first, then the topics, the broker and the zookeeper.
Each stopped service gets its new settings, then everything starts again in
reverse order. Services that do not exist yet are created from the
workspace spec first.

Scopes:
  full     zookeeper, broker, topics and worker (default)
  broker   broker, topics and worker
  worker   worker only

Press Ctrl+C once to pause the restart after the current step.

Examples:
  conductor restart ws1
  conductor restart ws1 --scope worker --worker-set 'freePorts=[5000,5001]'
  conductor restart ws1 --scope broker --broker-set xmx=2048 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)

	restartOutput.register(restartCmd)
	restartCmd.Flags().StringVarP(&restartScope, "scope", "s", "full", "Layers to restart (full, broker, worker)")
	restartCmd.Flags().StringArrayVar(&restartZookeeperSettings, "zookeeper-set", nil, "Zookeeper setting as key=value (repeatable)")
	restartCmd.Flags().StringArrayVar(&restartBrokerSettings, "broker-set", nil, "Broker setting as key=value (repeatable)")
	restartCmd.Flags().StringArrayVar(&restartWorkerSettings, "worker-set", nil, "Worker setting as key=value (repeatable)")
}

// restartSettings collects the per-layer settings flags.
func restartSettings(zookeeper, broker, worker []string) (map[api.ServiceKind]api.Spec, error) {
	settings := make(map[api.ServiceKind]api.Spec)
	for kind, pairs := range map[api.ServiceKind][]string{
		api.KindZookeeper: zookeeper,
		api.KindBroker:    broker,
		api.KindWorker:    worker,
	} {
		spec, err := parseSettings(pairs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if len(spec) > 0 {
			settings[kind] = spec
		}
	}
	return settings, nil
}

func runRestart(cmd *cobra.Command, args []string) error {
	name := args[0]
	scope, err := api.ParseScope(restartScope)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrInvalidIntent, err)
	}
	settings, err := restartSettings(restartZookeeperSettings, restartBrokerSettings, restartWorkerSettings)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrInvalidIntent, err)
	}
	formatter, err := restartOutput.formatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ws, err := application.Services().Specs.Get(name)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// The first interrupt pauses the run at the next step boundary.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			logging.Info("CLI", "Pausing restart of workspace %s after the current step", name)
			application.Pause(ws.Key())
		case <-done:
		}
	}()

	var s *spinner.Spinner
	if restartOutput.interactive() {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Writer = cmd.ErrOrStderr()
		s.Suffix = fmt.Sprintf(" Restarting workspace %s (%s)...", name, scope)
		s.Start()
	}

	report, err := application.RestartWorkspace(ctx, name, scope, settings)

	if s != nil {
		switch {
		case errors.Is(err, composer.ErrPaused):
			s.FinalMSG = text.FgYellow.Sprint("paused") + "\n"
		case err != nil:
			s.FinalMSG = text.FgRed.Sprint("✗") + "\n"
		default:
			s.FinalMSG = text.FgGreen.Sprint("✓") + "\n"
		}
		s.Stop()
	}

	if report != nil {
		if ferr := formatter.FormatReport(report); ferr != nil {
			return ferr
		}
	}
	return err
}
