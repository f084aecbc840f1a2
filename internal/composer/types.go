package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conductor/internal/api"
)

// StepFunc performs the work of one step.
type StepFunc func(ctx context.Context, run *Run) error

// GuardFunc decides right before activation whether a step should run.
// Returning false skips the step.
type GuardFunc func(ctx context.Context, run *Run) (bool, error)

// Step is one node of a composite workflow.
type Step struct {
	ID string
	// Layer decides scope filtering. LayerNone is never filtered.
	Layer api.Layer
	Kind  api.ServiceKind
	Key   api.ServiceKey
	// Description is used in progress titles, e.g. "Stop worker".
	Description string
	DependsOn   []string

	Guard GuardFunc
	Run   StepFunc

	// Quiet suppresses the success progress event.
	Quiet bool
}

// StepStatus is the terminal status of a step.
type StepStatus string

const (
	StatusSucceeded StepStatus = "SUCCEEDED"
	StatusFailed    StepStatus = "FAILED"
	StatusSkipped   StepStatus = "SKIPPED"
	StatusCancelled StepStatus = "CANCELLED"
)

// Skip reasons recorded on skipped steps.
const (
	SkipOutOfScope       = "out of scope"
	SkipGuard            = "guard declined"
	SkipDependencyFailed = "dependency failed"
)

// StepResult is the outcome of one step.
type StepResult struct {
	ID          string
	Description string
	Layer       api.Layer
	Key         api.ServiceKey
	Status      StepStatus
	Reason      string
	Err         error
	Duration    time.Duration
}

// Report summarises a composite run.
type Report struct {
	RunID     string
	Workspace api.ServiceKey
	Scope     api.Scope
	StartedAt time.Time
	Duration  time.Duration
	Steps     []StepResult
	Cancelled bool
}

// Step returns the result of a step by id.
func (r *Report) Step(id string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepResult{}, false
}

// Status returns the status of a step, or "" when unknown.
func (r *Report) Status(id string) StepStatus {
	s, _ := r.Step(id)
	return s.Status
}

// Failed returns the failed steps in plan order.
func (r *Report) Failed() []StepResult {
	return r.filter(StatusFailed)
}

// Count returns the number of steps with the given status.
func (r *Report) Count(status StepStatus) int {
	return len(r.filter(status))
}

func (r *Report) filter(status StepStatus) []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// Succeeded reports whether the run finished without failures and without
// being cancelled.
func (r *Report) Succeeded() bool {
	return !r.Cancelled && len(r.Failed()) == 0
}

// ErrPaused is returned when a run was paused before all steps ran.
var ErrPaused = errors.New("run paused")

// PanicError is a step that panicked. Steps must return errors instead.
type PanicError struct {
	StepID string
	Value  interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.StepID, e.Value)
}

// CompositeError collects the failures of a run.
type CompositeError struct {
	Failures []StepResult
}

func (e *CompositeError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.ID, f.Err))
	}
	return fmt.Sprintf("%d step(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *CompositeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// ContinuationPolicy decides what happens to steps after a failure.
type ContinuationPolicy string

const (
	// ContinueOnFailure runs every later step regardless of failures.
	ContinueOnFailure ContinuationPolicy = "continue"
	// SkipDependents skips steps whose dependencies failed.
	SkipDependents ContinuationPolicy = "skip-dependents"
)

// ParseContinuationPolicy accepts the configuration values of the policy.
func ParseContinuationPolicy(s string) (ContinuationPolicy, error) {
	switch ContinuationPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ContinueOnFailure:
		return ContinueOnFailure, nil
	case SkipDependents:
		return SkipDependents, nil
	default:
		return "", fmt.Errorf("unknown continuation policy %q (want %q or %q)", s, ContinueOnFailure, SkipDependents)
	}
}
