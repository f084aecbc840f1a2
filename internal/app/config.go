package app

import (
	"io"

	"conductor/internal/api"
	"conductor/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Logging settings. An empty LogLevel falls back to Debug.
	LogLevel  string
	LogFormat string

	// Silent discards all log output
	Silent bool

	// LogOutput overrides the log destination (stderr by default)
	LogOutput io.Writer

	// Configuration directory holding config.yaml and workspaces/
	ConfigPath string

	// Loaded configuration. Set by NewApplication when nil.
	ConductorConfig *config.Config

	// Remote overrides the HTTP client built from the configuration.
	// Used by tests and embedding applications.
	Remote api.ServiceAPI

	// Refresher overrides the default status refresher.
	Refresher api.Refresher
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
