package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"conductor/internal/api"
	"conductor/internal/app"
	"conductor/internal/config"
	"conductor/internal/formatting"
	"conductor/pkg/logging"
)

// Global flags shared by every command that talks to the remote system.
var (
	configPath string
	debug      bool
	logLevel   string
	logFormat  string
)

// serviceKinds are the kinds accepted by the transition commands.
var serviceKinds = []string{
	string(api.KindZookeeper),
	string(api.KindBroker),
	string(api.KindWorker),
	string(api.KindTopic),
	string(api.KindStream),
	string(api.KindShabondi),
}

// newApplication bootstraps the application from the global flags.
func newApplication() (*app.Application, error) {
	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}
	cfg := app.NewConfig(debug, path)
	cfg.LogLevel = logLevel
	cfg.LogFormat = logFormat
	cfg.LogOutput = os.Stderr

	application, err := app.NewApplication(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// outputOptions holds the --output and --quiet flags of a command.
type outputOptions struct {
	format string
	quiet  bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "output", "o", "table", "Output format (table, console, json, yaml)")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Suppress non-essential output")
}

func (o *outputOptions) formatter(w io.Writer) (formatting.Formatter, error) {
	format, ok := formatting.ParseOutputFormat(o.format)
	if !ok {
		return nil, fmt.Errorf("unknown output format '%s'. Available formats: table, console, json, yaml", o.format)
	}
	return formatting.NewFormatter(formatting.Options{
		Format: format,
		Quiet:  o.quiet,
		Color:  !o.quiet,
		Output: w,
	}), nil
}

// interactive reports whether progress decorations may be shown.
func (o *outputOptions) interactive() bool {
	format, _ := formatting.ParseOutputFormat(o.format)
	return !o.quiet && (format == formatting.FormatTable || format == formatting.FormatConsole)
}

// parseKind validates a service kind argument. Workspaces are only
// addressed by the restart command.
func parseKind(s string) (api.ServiceKind, error) {
	kind, err := api.ParseServiceKind(s)
	if err != nil {
		return "", fmt.Errorf("%w. Available kinds: %s", err, strings.Join(serviceKinds, ", "))
	}
	if kind == api.KindWorkspace {
		return "", fmt.Errorf("workspaces are restarted with 'conductor restart', not addressed directly")
	}
	return kind, nil
}

// parseSettings turns key=value pairs into a settings object. Values are
// decoded as YAML scalars or flow collections, so "2048" is a number and
// "[5000,5001]" a list.
func parseSettings(pairs []string) (api.Spec, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	spec := make(api.Spec, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q, expected key=value", pair)
		}
		var value interface{}
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value for setting %s: %w", key, err)
		}
		spec[key] = value
	}
	return spec, nil
}

// logAdapter reports element status changes on the log.
type logAdapter struct {
	kind api.ServiceKind
}

func (a logAdapter) SetPending(key api.ServiceKey) {
	logging.Info("CLI", "%s %s: %s", a.kind, key.Name, api.ElementPending)
}

func (a logAdapter) SetFinalState(key api.ServiceKey, status api.ElementStatus) {
	logging.Info("CLI", "%s %s: %s", a.kind, key.Name, status)
}

func (a logAdapter) RemoveElement(key api.ServiceKey) {
	logging.Info("CLI", "%s %s: removed", a.kind, key.Name)
}

var _ api.StatusAdapter = logAdapter{}
