package config

import "time"

// Config is the top-level configuration structure for conductor.
type Config struct {
	Remote     RemoteConfig     `yaml:"remote"`
	Retry      RetryConfig      `yaml:"retry"`
	Composer   ComposerConfig   `yaml:"composer"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty"`
	Workspaces WorkspacesConfig `yaml:"workspaces,omitempty"`
}

// RemoteConfig points at the configurator API that owns the services.
type RemoteConfig struct {
	BaseURL string        `yaml:"baseURL"`           // e.g. http://localhost:12345/v0
	Timeout time.Duration `yaml:"timeout,omitempty"` // Per-request timeout (default: 30s)
}

// RetryConfig tunes the retry budgets of single transitions. Zero values
// keep the built-in budgets.
type RetryConfig struct {
	Interval  time.Duration    `yaml:"interval,omitempty"`
	Overrides []PolicyOverride `yaml:"overrides,omitempty"`
}

// PolicyOverride replaces the budget of a service kind, optionally for a
// single transition only.
type PolicyOverride struct {
	Kind        string        `yaml:"kind"`
	Transition  string        `yaml:"transition,omitempty"` // START, STOP or DELETE; empty matches all
	Interval    time.Duration `yaml:"interval,omitempty"`
	MaxRetries int           `yaml:"maxRetries,omitempty"`
}

// ComposerConfig configures composite runs such as workspace restarts.
type ComposerConfig struct {
	ContinuationPolicy string `yaml:"continuationPolicy,omitempty"` // continue (default) or skip-dependents
	MaxConcurrency     int    `yaml:"maxConcurrency,omitempty"`     // Steps per level run at once; 0 is unlimited
}

// EventsConfig configures where events are recorded.
type EventsConfig struct {
	Log  bool       `yaml:"log"` // Write events to the log (default: true)
	NATS NATSConfig `yaml:"nats,omitempty"`
}

// NATSConfig publishes events on a NATS subject when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// WorkspacesConfig locates the stored workspace specs.
type WorkspacesConfig struct {
	Dir   string `yaml:"dir,omitempty"`   // Default: <config dir>/workspaces
	Watch bool   `yaml:"watch,omitempty"` // Reload workspace files on change
}
