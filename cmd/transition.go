package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"conductor/internal/api"
)

// transitionFlags are the flags of a single-service transition command.
type transitionFlags struct {
	output    outputOptions
	group     string
	workspace string
	settings  []string
}

// transitionCommand describes one of the start, stop, create, delete and
// update commands.
type transitionCommand struct {
	intent api.IntentKind
	use    string
	short  string
	long   string
	// progress is the spinner suffix, e.g. "Starting".
	progress string
}

func newTransitionCmd(tc transitionCommand) *cobra.Command {
	flags := &transitionFlags{}
	cmd := &cobra.Command{
		Use:   tc.use + " KIND NAME",
		Short: tc.short,
		Long:  tc.long,
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return serviceKinds, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, tc, flags, args)
		},
	}

	flags.output.register(cmd)
	cmd.Flags().StringVarP(&flags.group, "group", "g", "default", "Group of the service")
	switch tc.intent {
	case api.IntentCreate:
		cmd.Flags().StringVarP(&flags.workspace, "workspace", "w", "", "Workspace holding the creation spec")
		_ = cmd.MarkFlagRequired("workspace")
	case api.IntentUpdate:
		cmd.Flags().StringArrayVar(&flags.settings, "set", nil, "Setting to apply as key=value (repeatable)")
	}
	return cmd
}

// buildIntent turns the arguments of a transition command into an intent.
func buildIntent(tc transitionCommand, flags *transitionFlags, args []string) (api.Intent, error) {
	kind, err := parseKind(args[0])
	if err != nil {
		return api.Intent{}, err
	}
	intent := api.Intent{
		Kind:        tc.intent,
		ServiceKind: kind,
		Target:      api.ServiceKey{Group: flags.group, Name: args[1]},
		Adapter:     logAdapter{kind: kind},
	}
	switch tc.intent {
	case api.IntentCreate:
		intent.Workspace = api.ServiceKey{Name: flags.workspace}
	case api.IntentUpdate:
		settings, err := parseSettings(flags.settings)
		if err != nil {
			return api.Intent{}, err
		}
		if len(settings) == 0 {
			return api.Intent{}, fmt.Errorf("%w: update needs at least one --set key=value", api.ErrInvalidIntent)
		}
		intent.Payload = settings
	}
	return intent, nil
}

func runTransition(cmd *cobra.Command, tc transitionCommand, flags *transitionFlags, args []string) error {
	intent, err := buildIntent(tc, flags, args)
	if err != nil {
		return err
	}
	formatter, err := flags.output.formatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var s *spinner.Spinner
	if flags.output.interactive() {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Writer = cmd.ErrOrStderr()
		s.Suffix = fmt.Sprintf(" %s %s %s...", tc.progress, intent.ServiceKind, intent.Target.Name)
		s.FinalMSG = ""
		s.Start()
	}

	outcome, err := application.Dispatch(ctx, intent)

	if s != nil {
		if err != nil {
			s.FinalMSG = text.FgRed.Sprint("✗") + "\n"
		} else {
			s.FinalMSG = text.FgGreen.Sprint("✓") + "\n"
		}
		s.Stop()
	}

	if outcome != nil && outcome.Result != nil {
		if ferr := formatter.FormatResult(*outcome.Result); ferr != nil {
			return ferr
		}
	}
	return err
}
