package transition

import (
	"time"

	"conductor/internal/api"
	"conductor/internal/retry"
)

// PolicyFunc returns the retry policy for a transition of a service kind.
type PolicyFunc func(kind api.ServiceKind, t Transition) retry.Policy

// DefaultInterval is the delay between attempts of every default policy.
const DefaultInterval = 2 * time.Second

// DefaultPolicy returns the built-in policies: 10 retries for START and
// STOP, 5 for DELETE, 5 for stopping a stream, a single attempt otherwise.
func DefaultPolicy(kind api.ServiceKind, t Transition) retry.Policy {
	switch {
	case t == TransitionStop && kind == api.KindStream:
		return retry.Policy{Interval: DefaultInterval, MaxRetries: 5}
	case t == TransitionStart, t == TransitionStop:
		return retry.Policy{Interval: DefaultInterval, MaxRetries: 10}
	case t == TransitionDelete:
		return retry.Policy{Interval: DefaultInterval, MaxRetries: 5}
	default:
		return retry.Policy{Interval: DefaultInterval}
	}
}
