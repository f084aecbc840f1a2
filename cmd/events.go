package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"conductor/internal/config"
	"conductor/internal/events"
	"conductor/internal/formatting"
)

var (
	eventsOutputFormat string
	eventsEventType    string
	eventsKind         string
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow the events published by conductor",
	Long: `Follow the events that conductor processes publish on NATS.

Events are only published when events.nats.url is configured. Each running
command and 'conductor serve' publish on <events.nats.subject>.info and
<events.nats.subject>.error.

Filtering Options:
  --type   Filter by event type (INFO, ERROR)
  --kind   Filter by service kind (broker, worker, workspace, ...)

Examples:
  conductor events
  conductor events --type ERROR
  conductor events --kind workspace -o json`,
	Args:                  cobra.NoArgs,
	DisableFlagsInUseLine: true,
	RunE:                  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVarP(&eventsOutputFormat, "output", "o", "console", "Output format (console, json, yaml)")
	eventsCmd.Flags().StringVar(&eventsEventType, "type", "", "Filter by event type (INFO, ERROR)")
	eventsCmd.Flags().StringVar(&eventsKind, "kind", "", "Filter by service kind")
}

// eventFilter matches events against the --type and --kind flags.
type eventFilter struct {
	eventType events.EventType
	kind      string
}

func newEventFilter(eventType, kind string) (eventFilter, error) {
	f := eventFilter{kind: strings.ToLower(kind)}
	switch strings.ToUpper(eventType) {
	case "":
	case string(events.EventTypeInfo):
		f.eventType = events.EventTypeInfo
	case string(events.EventTypeError):
		f.eventType = events.EventTypeError
	default:
		return eventFilter{}, fmt.Errorf("unknown event type '%s'. Available types: INFO, ERROR", eventType)
	}
	return f, nil
}

func (f eventFilter) matches(ev events.Event) bool {
	if f.eventType != "" && ev.Type != f.eventType {
		return false
	}
	if f.kind != "" && string(ev.Kind) != f.kind {
		return false
	}
	return true
}

func runEvents(cmd *cobra.Command, args []string) error {
	filter, err := newEventFilter(eventsEventType, eventsKind)
	if err != nil {
		return err
	}
	format, ok := formatting.ParseOutputFormat(eventsOutputFormat)
	if !ok || format == formatting.FormatTable {
		return fmt.Errorf("unknown output format '%s'. Available formats: console, json, yaml", eventsOutputFormat)
	}
	formatter := formatting.NewFormatter(formatting.Options{Format: format, Output: cmd.OutOrStdout()})

	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}
	conf, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if conf.Events.NATS.URL == "" {
		return fmt.Errorf("events.nats.url is not configured in %s", path)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return events.Subscribe(ctx, conf.Events.NATS.URL, conf.Events.NATS.Subject, func(ev events.Event) {
		if !filter.matches(ev) {
			return
		}
		_ = formatter.FormatEvents([]events.Event{ev})
	})
}
