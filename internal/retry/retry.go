package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Policy bounds a retry loop: a fixed delay between attempts and a maximum
// number of retries after the first attempt. Each call site supplies its
// own policy.
type Policy struct {
	Interval   time.Duration `yaml:"interval"`
	MaxRetries int           `yaml:"maxRetries"`
}

// Validate reports policies that cannot drive a loop.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must not be negative, got %d", p.MaxRetries)
	}
	if p.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %s", p.Interval)
	}
	return nil
}

// MaxAttempts is the first attempt plus every retry.
func (p Policy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Budget is the total time spent waiting between attempts when every
// attempt fails.
func (p Policy) Budget() time.Duration {
	if p.MaxRetries <= 0 {
		return 0
	}
	return time.Duration(p.MaxRetries) * p.Interval
}

// Operation is one attempt. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d retries: %v", e.Retries(), e.Last)
}

// Retries is the number of attempts after the first one.
func (e *ExhaustedError) Retries() int {
	return e.Attempts - 1
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that must not be retried. Do returns the wrapped
// error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type options struct {
	clock       clockwork.Clock
	successWhen func(error) bool
	notify      func(attempt int, err error, next time.Duration)
}

// Option configures Do.
type Option func(*options)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithSuccessWhen installs a predicate for errors that actually mean the
// desired outcome already holds (for example "not found" while waiting for
// a service to disappear).
func WithSuccessWhen(pred func(error) bool) Option {
	return func(o *options) {
		o.successWhen = pred
	}
}

// WithNotify is called after every failed attempt that will be retried.
func WithNotify(fn func(attempt int, err error, next time.Duration)) Option {
	return func(o *options) {
		o.notify = fn
	}
}

// Do runs op until it succeeds, the policy is exhausted, op returns a
// Permanent error or ctx is done. It returns the number of attempts made.
//
// Attempts never overlap and share no state with other loops; the only
// suspension between them is the policy interval.
func Do(ctx context.Context, policy Policy, op Operation, opts ...Option) (int, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	maxAttempts := policy.MaxAttempts()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if o.successWhen != nil && o.successWhen(err) {
			return attempt, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, perm.err
		}

		if attempt >= maxAttempts {
			return attempt, &ExhaustedError{Attempts: attempt, Last: err}
		}

		if o.notify != nil {
			o.notify(attempt, err, policy.Interval)
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-o.clock.After(policy.Interval):
		}
	}
}
