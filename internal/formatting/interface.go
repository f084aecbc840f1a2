// Package formatting renders run reports, transition results and event logs
// for the command line.
//
// Reports and results are converted to plain views first, so every output
// format (console, JSON, YAML, table) shows the same fields.
package formatting

import (
	"io"
	"os"

	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/transition"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool      // Suppress decorative elements
	Color  bool      // Enable colored output
	Output io.Writer // Defaults to os.Stdout
}

func (o Options) writer() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

// Formatter renders the outcomes of conductor commands.
type Formatter interface {
	FormatReport(report *composer.Report) error
	FormatResult(result transition.Result) error
	FormatEvents(evs []events.Event) error

	SetOptions(options Options)
	GetOptions() Options
}

// ParseOutputFormat accepts the --output flag values.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	switch OutputFormat(s) {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return OutputFormat(s), true
	case "":
		return FormatTable, true
	default:
		return "", false
	}
}

// NewFormatter creates the appropriate formatter based on options
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}
