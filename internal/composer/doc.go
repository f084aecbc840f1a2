// Package composer executes composite workflows.
//
// A composite workflow is a set of steps with "must complete before" edges.
// The composer validates the graph, groups it into topological levels and
// runs each level concurrently. Before a step is activated the composer
// checks, in this order:
//
//  1. whether the run was paused or its context ended (the step and all
//     later ones are reported CANCELLED)
//  2. whether the step's layer is in the run's scope (SKIPPED, no events)
//  3. the continuation policy (with skip-dependents, a step whose
//     dependency failed is SKIPPED)
//  4. the step's guard (SKIPPED when it declines)
//
// Every executed step emits a progress event: "<time> <description>
// success..." on success, an ERROR progress event plus an ERROR event-log
// record on failure. Failures never abort the run; they are collected into
// a CompositeError returned next to the Report.
//
// Pausing takes effect at the next step boundary. Steps already running
// finish and emit their own events.
package composer
