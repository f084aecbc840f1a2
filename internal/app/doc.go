// Package app provides application bootstrap and lifecycle management for
// conductor.
//
// It loads the configuration, initializes logging and wires the services in
// dependency order:
//
//  1. Remote client (remote.Client) and workspace store (workspace.FileStore)
//  2. Event sinks: an in-memory sink, the log sink and, when configured, the
//     NATS sink; Prometheus metrics on a private registry
//  3. Transition workflow, composer and restart orchestrator, with the retry
//     budgets of the configuration
//  4. The dispatcher every intent goes through
//
// # Execution
//
// CLI commands create an Application, dispatch one intent and close it.
// Run keeps the process alive instead: it serves metrics when metrics.addr is
// set and watches the workspace directory when workspaces.watch is set.
//
// # Refreshes
//
// StatusRefresher is the api.Refresher used after successful restarts. It
// re-fetches the restarted services and keeps the latest snapshots per
// refresh target.
package app
