package formatting

import (
	"fmt"
	"strings"

	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/transition"
)

// ConsoleFormatter provides simple console output formatting
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{
		options: options,
	}
}

// FormatReport prints one line per step that ran, followed by a summary.
func (f *ConsoleFormatter) FormatReport(report *composer.Report) error {
	view := NewReportView(report)
	var output []string
	if !f.options.Quiet {
		output = append(output, fmt.Sprintf("Restart of workspace %s (run %s, scope %s):", view.Workspace, view.RunID, view.Scope))
	}
	for _, s := range view.Steps {
		line := fmt.Sprintf("  %-24s %-10s", s.ID, s.Status)
		switch {
		case s.Error != "":
			line += " " + s.Error
		case s.Reason != "":
			line += " (" + s.Reason + ")"
		}
		output = append(output, strings.TrimRight(line, " "))
	}
	output = append(output, summary(report))
	_, err := fmt.Fprintln(f.options.writer(), strings.Join(output, "\n"))
	return err
}

// FormatResult prints a single line for a transition result.
func (f *ConsoleFormatter) FormatResult(result transition.Result) error {
	view := NewResultView(result)
	line := fmt.Sprintf("%s %s %s: %s after %d attempt(s)", view.Transition, view.Kind, view.Name, view.Outcome, view.Attempts)
	if view.Message != "" {
		line += "\n  " + view.Message
	}
	_, err := fmt.Fprintln(f.options.writer(), line)
	return err
}

// FormatEvents prints the event titles in order.
func (f *ConsoleFormatter) FormatEvents(evs []events.Event) error {
	if len(evs) == 0 {
		_, err := fmt.Fprintln(f.options.writer(), "No events recorded.")
		return err
	}
	var output []string
	for _, ev := range evs {
		output = append(output, fmt.Sprintf("[%s] %s", ev.Type, ev.Title))
	}
	_, err := fmt.Fprintln(f.options.writer(), strings.Join(output, "\n"))
	return err
}

// SetOptions updates the formatter options
func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}

// summary counts the step statuses of a report.
func summary(r *composer.Report) string {
	state := "succeeded"
	switch {
	case len(r.Failed()) > 0:
		state = "failed"
	case r.Cancelled:
		state = "paused"
	}
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped, %d not started",
		state,
		r.Count(composer.StatusSucceeded),
		r.Count(composer.StatusFailed),
		r.Count(composer.StatusSkipped),
		r.Count(composer.StatusCancelled))
}
