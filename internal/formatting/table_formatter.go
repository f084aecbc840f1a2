package formatting

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/transition"
	pkgstrings "conductor/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatReport renders the steps of a run as a table.
func (f *TableFormatter) FormatReport(report *composer.Report) error {
	view := NewReportView(report)
	t := f.createTable()
	if !f.options.Quiet {
		t.SetTitle(fmt.Sprintf("Restart %s (%s)", view.Workspace, view.Scope))
	}
	t.AppendHeader(f.header("STEP", "LAYER", "STATUS", "DURATION", "DETAIL"))

	for _, s := range view.Steps {
		detail := s.Reason
		if s.Error != "" {
			detail = s.Error
		}
		t.AppendRow(table.Row{s.ID, s.Layer, f.colorStatus(s.Status), s.Duration, pkgstrings.Truncate(detail, pkgstrings.DefaultDetailMaxLen)})
	}
	t.AppendFooter(table.Row{"", "", "", "", summary(report)})
	t.Render()
	return nil
}

// FormatResult renders a transition result as key-value pairs.
func (f *TableFormatter) FormatResult(result transition.Result) error {
	view := NewResultView(result)
	t := f.createTable()
	t.AppendHeader(f.header("KEY", "VALUE"))
	t.AppendRows([]table.Row{
		{"kind", view.Kind},
		{"group", view.Group},
		{"name", view.Name},
		{"transition", view.Transition},
		{"outcome", f.colorStatus(view.Outcome)},
		{"attempts", view.Attempts},
	})
	if view.State != "" {
		t.AppendRow(table.Row{"state", view.State})
	}
	if view.Message != "" {
		t.AppendRow(table.Row{"message", view.Message})
	}
	t.Render()
	return nil
}

// FormatEvents renders an event log.
func (f *TableFormatter) FormatEvents(evs []events.Event) error {
	if len(evs) == 0 {
		_, err := fmt.Fprint(f.options.writer(), f.formatEmptyMessage("📋", "No events recorded"))
		return err
	}
	t := f.createTable()
	t.AppendHeader(f.header("TIME", "TYPE", "TITLE"))
	for _, ev := range eventViews(evs) {
		t.AppendRow(table.Row{ev["time"], f.colorStatus(ev["type"].(string)), ev["title"]})
	}
	t.Render()
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	if f.options.Quiet {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 80},
	})
	return t
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, 0, len(names))
	for _, n := range names {
		if f.options.Color {
			row = append(row, text.FgHiCyan.Sprint(n))
		} else {
			row = append(row, n)
		}
	}
	return row
}

// colorStatus highlights terminal statuses when color is enabled.
func (f *TableFormatter) colorStatus(status string) string {
	if !f.options.Color {
		return status
	}
	switch status {
	case string(composer.StatusSucceeded), string(transition.OutcomeSuccess), "INFO":
		return text.FgGreen.Sprint(status)
	case string(composer.StatusFailed), string(transition.OutcomeFailure), "ERROR":
		return text.FgRed.Sprint(status)
	case string(composer.StatusSkipped), string(composer.StatusCancelled):
		return text.FgYellow.Sprint(status)
	default:
		return status
	}
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	if !f.options.Color {
		return fmt.Sprintf("%s %s\n", icon, message)
	}
	return fmt.Sprintf("%s %s\n", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}
