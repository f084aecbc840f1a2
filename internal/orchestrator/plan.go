package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/transition"
)

// Step ids of the restart plan. Topic steps are suffixed with the topic
// name, e.g. "stop-topic:t1".
const (
	StepCreateWorker    = "create-worker"
	StepCreateBroker    = "create-broker"
	StepCreateZookeeper = "create-zookeeper"
	StepStopWorker      = "stop-worker"
	StepUpdateWorker    = "update-worker"
	StepStopTopic       = "stop-topic"
	StepStopBroker      = "stop-broker"
	StepUpdateBroker    = "update-broker"
	StepStopZookeeper   = "stop-zookeeper"
	StepUpdateZookeeper = "update-zookeeper"
	StepStartZookeeper  = "start-zookeeper"
	StepStartBroker     = "start-broker"
	StepStartTopic      = "start-topic"
	StepStartWorker     = "start-worker"
	StepUpdateWorkspace = "update-workspace"
)

// TopicStepID returns the id of a per-topic step.
func TopicStepID(prefix string, topic api.ServiceKey) string {
	return prefix + ":" + topic.Name
}

// planner appends steps to a chain, each depending on the previous group.
type planner struct {
	steps []composer.Step
	prev  []string
}

func (p *planner) then(steps ...composer.Step) {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		s.DependsOn = append([]string(nil), p.prev...)
		p.steps = append(p.steps, s)
		ids = append(ids, s.ID)
	}
	if len(ids) > 0 {
		p.prev = ids
	}
}

// layerPlan is the per-layer input of the restart plan.
type layerPlan struct {
	kind     api.ServiceKind
	key      api.ServiceKey
	settings api.Spec

	create, stop, update, start string
}

func layers(req api.RestartRequest) map[api.Layer]layerPlan {
	return map[api.Layer]layerPlan{
		api.LayerZookeeper: {api.KindZookeeper, req.Zookeeper, req.ZookeeperSettings, StepCreateZookeeper, StepStopZookeeper, StepUpdateZookeeper, StepStartZookeeper},
		api.LayerBroker:    {api.KindBroker, req.Broker, req.BrokerSettings, StepCreateBroker, StepStopBroker, StepUpdateBroker, StepStartBroker},
		api.LayerWorker:    {api.KindWorker, req.Worker, req.WorkerSettings, StepCreateWorker, StepStopWorker, StepUpdateWorker, StepStartWorker},
	}
}

// plan builds the restart workflow from api.DependencyChain:
//
//	create worker -> create broker -> create zookeeper ->
//	stop worker -> update worker -> stop topics -> stop broker -> update broker ->
//	stop zookeeper -> update zookeeper -> start zookeeper -> start broker ->
//	start topics -> start worker -> update workspace settings
//
// Creates and stops walk the chain top down, starts bottom up. Topics hang
// off the broker and run concurrently.
func (o *Orchestrator) plan(req api.RestartRequest) []composer.Step {
	p := &planner{}
	byLayer := layers(req)
	chain := api.DependencyChain

	for i := len(chain) - 1; i >= 0; i-- {
		l := byLayer[chain[i]]
		p.then(o.createStep(l.create, l.kind, l.key, req.Workspace))
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] == api.LayerBroker {
			p.then(o.topicSteps(req.Topics, StepStopTopic, o.stopStep)...)
		}
		l := byLayer[chain[i]]
		p.then(o.stopStep(l.stop, l.kind, l.key))
		p.then(o.updateStep(l.update, l.kind, l.key, l.settings))
	}

	for _, layer := range chain {
		l := byLayer[layer]
		p.then(o.startStep(l.start, l.kind, l.key))
		if layer == api.LayerBroker {
			p.then(o.topicSteps(req.Topics, StepStartTopic, o.startStep)...)
		}
	}

	p.then(o.updateWorkspaceStep(req))
	return p.steps
}

func (o *Orchestrator) topicSteps(topics []api.ServiceKey, prefix string, step func(string, api.ServiceKind, api.ServiceKey) composer.Step) []composer.Step {
	steps := make([]composer.Step, 0, len(topics))
	for _, topic := range topics {
		steps = append(steps, step(TopicStepID(prefix, topic), api.KindTopic, topic))
	}
	return steps
}

func (o *Orchestrator) createStep(id string, kind api.ServiceKind, key, workspace api.ServiceKey) composer.Step {
	return composer.Step{
		ID:          id,
		Layer:       api.LayerNone,
		Kind:        kind,
		Key:         key,
		Description: "Create " + string(kind),
		Quiet:       true,
		Run: func(ctx context.Context, run *composer.Run) error {
			result := o.workflow.Create(ctx, kind, key, workspace)
			if result.Skipped {
				run.Log().Debug("%s %s already exists", kind, key.Name)
			}
			return result.Err
		},
	}
}

func (o *Orchestrator) stopStep(id string, kind api.ServiceKind, key api.ServiceKey) composer.Step {
	return composer.Step{
		ID:          id,
		Layer:       api.LayerForKind(kind),
		Kind:        kind,
		Key:         key,
		Description: describe("Stop", kind, key),
		Guard:       o.whenRunning(kind, key, true),
		Run: func(ctx context.Context, run *composer.Run) error {
			return o.workflow.Stop(ctx, kind, key, o.policies(kind, transition.TransitionStop), nil).Err
		},
	}
}

func (o *Orchestrator) startStep(id string, kind api.ServiceKind, key api.ServiceKey) composer.Step {
	return composer.Step{
		ID:          id,
		Layer:       api.LayerForKind(kind),
		Kind:        kind,
		Key:         key,
		Description: describe("Start", kind, key),
		Guard:       o.whenRunning(kind, key, false),
		Run: func(ctx context.Context, run *composer.Run) error {
			return o.workflow.Start(ctx, kind, key, o.policies(kind, transition.TransitionStart), nil).Err
		},
	}
}

func (o *Orchestrator) updateStep(id string, kind api.ServiceKind, key api.ServiceKey, settings api.Spec) composer.Step {
	return composer.Step{
		ID:          id,
		Layer:       api.LayerForKind(kind),
		Kind:        kind,
		Key:         key,
		Description: describe("Update", kind, key),
		Run: func(ctx context.Context, run *composer.Run) error {
			return o.workflow.Update(ctx, kind, key, withTags(settings)).Err
		},
	}
}

func (o *Orchestrator) updateWorkspaceStep(req api.RestartRequest) composer.Step {
	settings := make(map[api.ServiceKind]api.Spec, 3)
	for kind, s := range map[api.ServiceKind]api.Spec{
		api.KindWorker:    req.WorkerSettings,
		api.KindBroker:    req.BrokerSettings,
		api.KindZookeeper: req.ZookeeperSettings,
	} {
		if len(s) > 0 {
			settings[kind] = copySpec(s)
		}
	}

	return composer.Step{
		ID:          StepUpdateWorkspace,
		Layer:       api.LayerNone,
		Kind:        api.KindWorkspace,
		Key:         req.Workspace,
		Description: "Update workspace",
		Quiet:       true,
		Guard: func(ctx context.Context, run *composer.Run) (bool, error) {
			return len(settings) > 0, nil
		},
		Run: func(ctx context.Context, run *composer.Run) error {
			if o.specs == nil {
				return api.ErrNoSpecStore
			}
			if err := o.specs.UpdateSettings(ctx, req.Workspace, settings); err != nil {
				return fmt.Errorf("update settings of workspace %s: %w", req.Workspace.Name, err)
			}
			return nil
		},
	}
}

// whenRunning builds a liveness guard: with want=true the step only runs
// when the service is RUNNING, with want=false only when it is not.
func (o *Orchestrator) whenRunning(kind api.ServiceKind, key api.ServiceKey, want bool) composer.GuardFunc {
	return func(ctx context.Context, run *composer.Run) (bool, error) {
		snap, err := o.remote.Get(ctx, kind, key)
		if err != nil {
			if api.IsNotFound(err) {
				return !want, nil
			}
			return false, fmt.Errorf("check %s %s: %w", kind, key.Name, err)
		}
		return snap.IsRunning() == want, nil
	}
}

func describe(verb string, kind api.ServiceKind, key api.ServiceKey) string {
	if kind == api.KindTopic {
		return fmt.Sprintf("%s topic %s", verb, key.Name)
	}
	return verb + " " + strings.ToLower(string(kind))
}

// withTags returns the update payload: the settings plus a copy of them
// under "tags".
func withTags(settings api.Spec) api.Spec {
	out := copySpec(settings)
	out["tags"] = map[string]interface{}(copySpec(settings))
	return out
}

func copySpec(s api.Spec) api.Spec {
	out := make(api.Spec, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}
