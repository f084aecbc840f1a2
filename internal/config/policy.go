package config

import (
	"strings"

	"conductor/internal/api"
	"conductor/internal/retry"
	"conductor/internal/transition"
)

// PolicyFor returns the retry budget of a transition: the built-in budget,
// the configured interval and finally the most specific override. It
// matches transition.PolicyFunc.
func (c RetryConfig) PolicyFor(kind api.ServiceKind, t transition.Transition) retry.Policy {
	policy := transition.DefaultPolicy(kind, t)
	if c.Interval > 0 {
		policy.Interval = c.Interval
	}

	var match *PolicyOverride
	for i := range c.Overrides {
		o := &c.Overrides[i]
		if !strings.EqualFold(o.Kind, string(kind)) {
			continue
		}
		if o.Transition == "" {
			if match == nil {
				match = o
			}
			continue
		}
		if strings.EqualFold(o.Transition, string(t)) {
			match = o
			break
		}
	}
	if match == nil {
		return policy
	}
	if match.Interval > 0 {
		policy.Interval = match.Interval
	}
	if match.MaxRetries > 0 {
		policy.MaxRetries = match.MaxRetries
	}
	return policy
}
