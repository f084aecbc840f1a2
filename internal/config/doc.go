// Package config provides configuration management for conductor.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default directory is ~/.config/conductor; commands accept --config-path
// to point elsewhere. Missing files leave the defaults in place.
//
// # Configuration File
//
//	remote:
//	  baseURL: http://configurator:12345/v0
//	  timeout: 30s
//	retry:
//	  interval: 2s
//	  overrides:
//	    - kind: stream
//	      transition: STOP
//	      maxRetries: 5
//	composer:
//	  continuationPolicy: skip-dependents
//	  maxConcurrency: 4
//	events:
//	  log: true
//	  nats:
//	    url: nats://localhost:4222
//	    subject: conductor.events
//	metrics:
//	  addr: :9090
//	workspaces:
//	  dir: /etc/conductor/workspaces
//	  watch: true
//
// Retry overrides are resolved by RetryConfig.PolicyFor: an override naming
// the transition wins over one that only names the kind, and both win over
// the built-in budgets of the transition package.
//
// # Workspace Specs
//
// Workspace specs live in the workspaces/ subdirectory of the configuration
// directory unless workspaces.dir says otherwise. See package workspace.
package config
