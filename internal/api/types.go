package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceKind identifies the type of a managed object on the remote system.
type ServiceKind string

const (
	KindZookeeper ServiceKind = "zookeeper"
	KindBroker    ServiceKind = "broker"
	KindWorker    ServiceKind = "worker"
	KindTopic     ServiceKind = "topic"
	KindStream    ServiceKind = "stream"
	KindShabondi  ServiceKind = "shabondi"
	KindWorkspace ServiceKind = "workspace"
)

// ParseServiceKind accepts the kind names used on the command line and in
// configuration files.
func ParseServiceKind(s string) (ServiceKind, error) {
	kind := ServiceKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case KindZookeeper, KindBroker, KindWorker, KindTopic, KindStream, KindShabondi, KindWorkspace:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown service kind %q", s)
	}
}

// ServiceKey is the immutable identity of a managed service instance.
type ServiceKey struct {
	Group string `json:"group" yaml:"group"`
	Name  string `json:"name" yaml:"name"`
}

// ID returns the stable composite fingerprint of the key.
func (k ServiceKey) ID() string {
	return k.Group + "-" + k.Name
}

// IsZero reports whether the key is unset.
func (k ServiceKey) IsZero() bool {
	return k.Group == "" && k.Name == ""
}

func (k ServiceKey) String() string {
	return k.Group + "/" + k.Name
}

// ServiceState is the state reported by the remote system. An object that
// does not exist, or reports no state at all, is NONEXISTENT.
type ServiceState string

const (
	StateNonexistent ServiceState = "NONEXISTENT"
	StateRunning     ServiceState = "RUNNING"
	StateFailed      ServiceState = "FAILED"
	StateUnknown     ServiceState = "UNKNOWN"
)

// Snapshot is the latest observed state of a service. It is only ever
// produced by polling the remote system.
type Snapshot struct {
	Key   ServiceKey             `json:"key"`
	Kind  ServiceKind            `json:"kind"`
	State ServiceState           `json:"state"`
	Raw   map[string]interface{} `json:"raw,omitempty"`
}

// Exists reports whether the snapshot describes a live object.
func (s *Snapshot) Exists() bool {
	return s != nil && s.State != "" && s.State != StateNonexistent
}

// IsRunning reports whether the snapshot observed the RUNNING state.
func (s *Snapshot) IsRunning() bool {
	return s != nil && s.State == StateRunning
}

// ObservedState returns the state, mapping an absent state to NONEXISTENT.
func (s *Snapshot) ObservedState() ServiceState {
	if !s.Exists() {
		return StateNonexistent
	}
	return s.State
}

// Spec is a stored creation spec or a settings object for a service.
type Spec map[string]interface{}

// Layer is one level of the managed service stack.
type Layer string

const (
	LayerZookeeper Layer = "ZOOKEEPER"
	LayerBroker    Layer = "BROKER"
	LayerWorker    Layer = "WORKER"
	LayerTopics    Layer = "TOPICS"
	// LayerNone marks work that is not bound to any layer and therefore
	// never filtered by scope (existence checks, workspace settings).
	LayerNone Layer = ""
)

// DependencyChain lists the service layers from the bottom of the stack up.
// Topics hang off the broker layer.
var DependencyChain = []Layer{LayerZookeeper, LayerBroker, LayerWorker}

// LayerForKind maps a service kind to its layer.
func LayerForKind(kind ServiceKind) Layer {
	switch kind {
	case KindZookeeper:
		return LayerZookeeper
	case KindBroker:
		return LayerBroker
	case KindWorker:
		return LayerWorker
	case KindTopic:
		return LayerTopics
	default:
		return LayerNone
	}
}

// Scope is the operator-selected subset of layers a restart acts upon.
type Scope string

const (
	ScopeFull            Scope = "FULL"
	ScopeBrokerAndWorker Scope = "BROKER_AND_WORKER"
	ScopeWorkerOnly      Scope = "WORKER_ONLY"
)

// ParseScope accepts both the canonical names and the short forms used by the
// CLI ("full", "broker", "worker").
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full", "zookeeper", strings.ToLower(string(ScopeFull)):
		return ScopeFull, nil
	case "broker", strings.ToLower(string(ScopeBrokerAndWorker)):
		return ScopeBrokerAndWorker, nil
	case "worker", strings.ToLower(string(ScopeWorkerOnly)):
		return ScopeWorkerOnly, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Includes reports whether the layer is acted upon under this scope.
// LayerNone is always included.
func (s Scope) Includes(layer Layer) bool {
	switch layer {
	case LayerNone:
		return true
	case LayerWorker:
		return true
	case LayerBroker, LayerTopics:
		return s == ScopeFull || s == ScopeBrokerAndWorker || s == ""
	case LayerZookeeper:
		return s == ScopeFull || s == ""
	default:
		return false
	}
}

// IntentKind is the high-level operation requested by an operator.
type IntentKind string

const (
	IntentCreate  IntentKind = "CREATE"
	IntentStart   IntentKind = "START"
	IntentStop    IntentKind = "STOP"
	IntentUpdate  IntentKind = "UPDATE"
	IntentDelete  IntentKind = "DELETE"
	IntentRestart IntentKind = "RESTART"
)

// Intent is a requested transition. It lives for a single dispatch.
type Intent struct {
	Kind        IntentKind
	ServiceKind ServiceKind
	Target      ServiceKey
	Payload     Spec
	Scope       Scope

	// Workspace owns the stored spec used by CREATE.
	Workspace ServiceKey

	// Restart carries the composite plan input for RESTART intents.
	Restart *RestartRequest

	// Adapter receives status updates for the target; nil means no-op.
	Adapter StatusAdapter
}

// Fingerprint identifies equivalent intents for deduplication. Intents
// with the same target but a different payload, scope, workspace or restart
// input get different fingerprints. The adapter is not part of it.
func (i Intent) Fingerprint() string {
	fp := string(i.Kind) + ":" + string(i.ServiceKind) + ":" + i.Target.ID()
	if len(i.Payload) == 0 && i.Scope == "" && i.Workspace.IsZero() && i.Restart == nil {
		return fp
	}
	return fp + "#" + digest(struct {
		Payload   Spec            `json:"payload,omitempty"`
		Scope     Scope           `json:"scope,omitempty"`
		Workspace ServiceKey      `json:"workspace"`
		Restart   *RestartRequest `json:"restart,omitempty"`
	}{i.Payload, i.Scope, i.Workspace, i.Restart})
}

// digest hashes the canonical JSON form of v. Map keys are sorted by
// encoding/json, so equal settings give equal digests.
func digest(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// RestartRequest is the input of a workspace restart.
type RestartRequest struct {
	Workspace ServiceKey
	Zookeeper ServiceKey
	Broker    ServiceKey
	Worker    ServiceKey

	ZookeeperSettings Spec
	BrokerSettings    Spec
	WorkerSettings    Spec

	Topics []ServiceKey
	Scope  Scope
}
