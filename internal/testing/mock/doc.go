// Package mock provides in-memory test doubles for the remote control-plane
// API and its collaborators.
//
// ServiceAPI behaves like the remote configurator for a handful of objects:
// Start marks an object RUNNING, Stop clears its state and Remove deletes
// it. Tests steer convergence by scripting Get answers, injecting errors per
// operation, marking objects stuck or installing hooks that block a call
// until the test releases it. Every call is recorded so tests can assert on
// exact call counts and ordering.
//
// StatusAdapter, Refresher and SpecStore record what the workflows asked of
// them.
package mock
