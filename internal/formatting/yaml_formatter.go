package formatting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/transition"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// FormatReport formats a run report as YAML
func (f *YAMLFormatter) FormatReport(report *composer.Report) error {
	return f.print(NewReportView(report))
}

// FormatResult formats a transition result as YAML
func (f *YAMLFormatter) FormatResult(result transition.Result) error {
	return f.print(NewResultView(result))
}

// FormatEvents formats an event log as YAML
func (f *YAMLFormatter) FormatEvents(evs []events.Event) error {
	return f.print(eventViews(evs))
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

func (f *YAMLFormatter) print(data interface{}) error {
	_, err := fmt.Fprint(f.options.writer(), f.marshal(data))
	return err
}

// marshal converts data to YAML string
func (f *YAMLFormatter) marshal(data interface{}) string {
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error: \"Failed to format YAML: %v\"\n", err)
	}

	return string(yamlBytes)
}
