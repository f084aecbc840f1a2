package formatting

import (
	"fmt"

	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/transition"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// FormatReport formats a run report as JSON
func (f *JSONFormatter) FormatReport(report *composer.Report) error {
	return f.print(NewReportView(report))
}

// FormatResult formats a transition result as JSON
func (f *JSONFormatter) FormatResult(result transition.Result) error {
	return f.print(NewResultView(result))
}

// FormatEvents formats an event log as JSON
func (f *JSONFormatter) FormatEvents(evs []events.Event) error {
	return f.print(eventViews(evs))
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

func (f *JSONFormatter) print(data interface{}) error {
	_, err := fmt.Fprintln(f.options.writer(), f.marshal(data))
	return err
}

// marshal renders data compactly in quiet mode
func (f *JSONFormatter) marshal(data interface{}) string {
	return EncodeJSON(data, !f.options.Quiet)
}
