// Package orchestrator restarts the service stack of a workspace.
//
// A restart is a composite workflow run by the composer:
//
//  1. create worker, broker and zookeeper from the workspace's stored specs
//     when they do not exist (never scope filtered)
//  2. stop worker, update worker, stop topics, stop broker, update broker,
//     stop zookeeper, update zookeeper
//  3. start zookeeper, start broker, start topics, start worker
//  4. persist the non-empty layer settings on the workspace
//  5. emit "Successfully Restart workspace <name>." and refresh the node,
//     worker, broker and zookeeper read models
//
// The scope limits which layers are touched: FULL acts on all of them,
// BROKER_AND_WORKER leaves zookeeper alone and WORKER_ONLY touches only the
// worker. Stop steps are skipped for services that are not running and
// start steps for services that already are. Update steps are not guarded:
// the service was just stopped, so they always run when the layer is in
// scope. Update payloads carry the settings plus a copy of them under
// "tags".
//
// Each workspace has at most one active restart. A second trigger while one
// is running fails with ErrRestartInProgress. Pause cancels the active
// restart at the next step boundary; after the in-flight step's own event a
// paused restart emits nothing and triggers no refreshes. A failed step
// only reports its own events: the run continues (depending on the
// composer's continuation policy) and still ends with the success event and
// the refreshes. Exactly one RestartFailure event is emitted when the
// workflow itself breaks, i.e. a step panicked or the plan is invalid.
//
// # Usage
//
//	orch := orchestrator.New(orchestrator.Config{
//	    Remote:   remote,
//	    Specs:    store,
//	    Composer: composer.New(composer.WithEmitter(emitter)),
//	})
//	report, err := orch.RestartWorkspace(ctx, api.RestartRequest{...})
package orchestrator
