package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"conductor/internal/api"
	"conductor/internal/retry"
	"conductor/internal/transition"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := LoadConfig(tempDir)

	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.Remote.BaseURL)
	assert.Equal(t, DefaultRemoteTimeout, cfg.Remote.Timeout)
	assert.Equal(t, "continue", cfg.Composer.ContinuationPolicy)
	assert.True(t, cfg.Events.Log)
	assert.Equal(t, DefaultEventSubject, cfg.Events.NATS.Subject)
	assert.Equal(t, filepath.Join(tempDir, WorkspacesDirName), cfg.Workspaces.Dir)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
remote:
  baseURL: http://configurator:5050/v0
  timeout: 5s
retry:
  interval: 500ms
  overrides:
    - kind: broker
      transition: STOP
      maxRetries: 20
composer:
  continuationPolicy: skip-dependents
  maxConcurrency: 2
events:
  log: false
  nats:
    url: nats://localhost:4222
metrics:
  addr: ":9090"
workspaces:
  dir: /srv/workspaces
  watch: true
`)

	cfg, err := LoadConfig(tempDir)

	require.NoError(t, err)
	assert.Equal(t, "http://configurator:5050/v0", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Interval)
	require.Len(t, cfg.Retry.Overrides, 1)
	assert.Equal(t, 20, cfg.Retry.Overrides[0].MaxRetries)
	assert.Equal(t, "skip-dependents", cfg.Composer.ContinuationPolicy)
	assert.Equal(t, 2, cfg.Composer.MaxConcurrency)
	assert.False(t, cfg.Events.Log)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATS.URL)
	// untouched nested defaults survive
	assert.Equal(t, DefaultEventSubject, cfg.Events.NATS.Subject)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "/srv/workspaces", cfg.Workspaces.Dir)
	assert.True(t, cfg.Workspaces.Watch)
}

func TestLoadConfig_Malformed(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "remote: [unclosed")

	_, err := LoadConfig(tempDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config from")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
composer:
  continuationPolicy: retry-forever
`)

	_, err := LoadConfig(tempDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "composer.continuationPolicy")
}

func TestConfig_RoundTripsThroughYAML(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Retry.Overrides = []PolicyOverride{{Kind: "stream", Transition: "STOP", MaxRetries: 5}}

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 30s")

	tempDir := t.TempDir()
	writeConfig(t, tempDir, string(data))
	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Retry, loaded.Retry)
	assert.Equal(t, cfg.Remote, loaded.Remote)
}

func TestGetUserConfigDir(t *testing.T) {
	original := osUserHomeDir
	defer func() { osUserHomeDir = original }()
	osUserHomeDir = func() (string, error) { return "/home/op", nil }

	dir, err := GetUserConfigDir()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/op", ".config", "conductor"), dir)
	assert.Equal(t, dir, GetDefaultConfigPathOrPanic())
}

func TestRetryConfig_PolicyFor(t *testing.T) {
	cfg := RetryConfig{
		Interval: time.Second,
		Overrides: []PolicyOverride{
			{Kind: "broker", MaxRetries: 3},
			{Kind: "broker", Transition: "stop", MaxRetries: 20, Interval: 5 * time.Second},
			{Kind: "topic", Interval: 100 * time.Millisecond},
		},
	}

	tests := []struct {
		name string
		kind api.ServiceKind
		tr   transition.Transition
		want retry.Policy
	}{
		{"kind override", api.KindBroker, transition.TransitionStart, retry.Policy{Interval: time.Second, MaxRetries: 3}},
		{"transition override wins", api.KindBroker, transition.TransitionStop, retry.Policy{Interval: 5 * time.Second, MaxRetries: 20}},
		{"interval only", api.KindTopic, transition.TransitionStart, retry.Policy{Interval: 100 * time.Millisecond, MaxRetries: 10}},
		{"built-in budget", api.KindStream, transition.TransitionStop, retry.Policy{Interval: time.Second, MaxRetries: 5}},
		{"built-in delete", api.KindWorker, transition.TransitionDelete, retry.Policy{Interval: time.Second, MaxRetries: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.PolicyFor(tt.kind, tt.tr))
		})
	}
}

func TestRetryConfig_PolicyForWithoutOverrides(t *testing.T) {
	var cfg RetryConfig
	assert.Equal(t, transition.DefaultPolicy(api.KindWorker, transition.TransitionStart), cfg.PolicyFor(api.KindWorker, transition.TransitionStart))
}
