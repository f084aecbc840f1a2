package config

import "time"

const (
	// DefaultBaseURL is the configurator API of a local installation.
	DefaultBaseURL = "http://localhost:12345/v0"

	// DefaultRemoteTimeout bounds a single remote request.
	DefaultRemoteTimeout = 30 * time.Second

	// DefaultEventSubject is the NATS subject prefix for events.
	DefaultEventSubject = "conductor.events"

	// WorkspacesDirName is the subdirectory of the config directory holding
	// workspace specs.
	WorkspacesDirName = "workspaces"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultRemoteTimeout,
		},
		Composer: ComposerConfig{
			ContinuationPolicy: "continue",
		},
		Events: EventsConfig{
			Log: true,
			NATS: NATSConfig{
				Subject: DefaultEventSubject,
			},
		},
	}
}
