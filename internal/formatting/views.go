package formatting

import (
	"time"

	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/transition"
)

// ReportView is the serializable form of a composer.Report.
type ReportView struct {
	RunID     string     `json:"runId" yaml:"runId"`
	Workspace string     `json:"workspace" yaml:"workspace"`
	Scope     string     `json:"scope" yaml:"scope"`
	StartedAt time.Time  `json:"startedAt" yaml:"startedAt"`
	Duration  string     `json:"duration" yaml:"duration"`
	Cancelled bool       `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Steps     []StepView `json:"steps" yaml:"steps"`
}

// StepView is one step of a ReportView.
type StepView struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Layer       string `json:"layer,omitempty" yaml:"layer,omitempty"`
	Status      string `json:"status" yaml:"status"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	Duration    string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ResultView is the serializable form of a transition.Result.
type ResultView struct {
	Kind       string `json:"kind" yaml:"kind"`
	Group      string `json:"group" yaml:"group"`
	Name       string `json:"name" yaml:"name"`
	Transition string `json:"transition" yaml:"transition"`
	Outcome    string `json:"outcome" yaml:"outcome"`
	State      string `json:"state,omitempty" yaml:"state,omitempty"`
	Attempts   int    `json:"attempts" yaml:"attempts"`
	Skipped    bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

// NewReportView converts a report.
func NewReportView(r *composer.Report) ReportView {
	view := ReportView{
		RunID:     r.RunID,
		Workspace: r.Workspace.Name,
		Scope:     string(r.Scope),
		StartedAt: r.StartedAt,
		Duration:  roundDuration(r.Duration),
		Cancelled: r.Cancelled,
		Steps:     make([]StepView, 0, len(r.Steps)),
	}
	for _, s := range r.Steps {
		step := StepView{
			ID:          s.ID,
			Description: s.Description,
			Layer:       string(s.Layer),
			Status:      string(s.Status),
			Reason:      s.Reason,
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		if s.Duration > 0 {
			step.Duration = roundDuration(s.Duration)
		}
		view.Steps = append(view.Steps, step)
	}
	return view
}

// NewResultView converts a transition result.
func NewResultView(r transition.Result) ResultView {
	view := ResultView{
		Kind:       string(r.Kind),
		Group:      r.Key.Group,
		Name:       r.Key.Name,
		Transition: string(r.Transition),
		Outcome:    string(r.Outcome),
		Attempts:   r.Attempts,
		Skipped:    r.Skipped,
		Message:    r.Message,
	}
	if r.Snapshot != nil {
		view.State = string(r.Snapshot.ObservedState())
	}
	if r.Err != nil {
		view.Message = r.Err.Error()
	}
	return view
}

// eventViews strips the payloads of events for display.
func eventViews(evs []events.Event) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(evs))
	for _, ev := range evs {
		out = append(out, map[string]interface{}{
			"type":   string(ev.Type),
			"reason": string(ev.Reason),
			"title":  ev.Title,
			"time":   ev.Timestamp.Format(events.TimestampLayout),
		})
	}
	return out
}

func roundDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Millisecond).String()
	default:
		return d.String()
	}
}
