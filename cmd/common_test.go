package cmd

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"conductor/internal/api"
	"conductor/internal/events"
)

func TestParseSettings(t *testing.T) {
	got, err := parseSettings([]string{"xmx=2048", "freePorts=[5000,5001]", "name=wk1", "enabled=true", "empty="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := api.Spec{
		"xmx":       2048,
		"freePorts": []interface{}{5000, 5001},
		"name":      "wk1",
		"enabled":   true,
		"empty":     nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseSettings() = %#v, want %#v", got, want)
	}

	for _, bad := range []string{"novalue", "=1", "x=[1,"} {
		if _, err := parseSettings([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}

	if spec, err := parseSettings(nil); err != nil || spec != nil {
		t.Errorf("parseSettings(nil) = %v, %v", spec, err)
	}
}

func TestParseKind(t *testing.T) {
	if kind, err := parseKind("Broker"); err != nil || kind != api.KindBroker {
		t.Errorf("parseKind(Broker) = %q, %v", kind, err)
	}
	if _, err := parseKind("workspace"); err == nil {
		t.Error("expected workspaces to be rejected")
	}
	if _, err := parseKind("cluster"); err == nil {
		t.Error("expected unknown kind to be rejected")
	}
}

func TestOutputOptions(t *testing.T) {
	o := &outputOptions{format: "xml"}
	if _, err := o.formatter(&bytes.Buffer{}); err == nil {
		t.Error("expected unknown format to be rejected")
	}

	o = &outputOptions{format: "table"}
	if !o.interactive() {
		t.Error("table output should be interactive")
	}
	o.quiet = true
	if o.interactive() {
		t.Error("quiet output should not be interactive")
	}
	o = &outputOptions{format: "json"}
	if o.interactive() {
		t.Error("json output should not be interactive")
	}
}

func TestBuildIntent(t *testing.T) {
	create := transitionCommand{intent: api.IntentCreate}
	intent, err := buildIntent(create, &transitionFlags{group: "broker", workspace: "ws1"}, []string{"broker", "bk1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Kind != api.IntentCreate || intent.ServiceKind != api.KindBroker {
		t.Errorf("unexpected intent %+v", intent)
	}
	if intent.Target != (api.ServiceKey{Group: "broker", Name: "bk1"}) {
		t.Errorf("unexpected target %v", intent.Target)
	}
	if intent.Workspace.Name != "ws1" {
		t.Errorf("unexpected workspace %v", intent.Workspace)
	}

	update := transitionCommand{intent: api.IntentUpdate}
	intent, err = buildIntent(update, &transitionFlags{group: "worker", settings: []string{"xmx=1024"}}, []string{"worker", "wk1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Payload["xmx"] != 1024 {
		t.Errorf("unexpected payload %v", intent.Payload)
	}

	_, err = buildIntent(update, &transitionFlags{group: "worker"}, []string{"worker", "wk1"})
	if !errors.Is(err, api.ErrInvalidIntent) {
		t.Errorf("expected invalid intent for update without settings, got %v", err)
	}
}

func TestRestartSettings(t *testing.T) {
	settings, err := restartSettings(nil, []string{"xmx=2048"}, []string{"freePorts=[5000]"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := settings[api.KindZookeeper]; ok {
		t.Error("zookeeper settings should be absent")
	}
	if settings[api.KindBroker]["xmx"] != 2048 {
		t.Errorf("unexpected broker settings %v", settings[api.KindBroker])
	}
	if len(settings[api.KindWorker]) != 1 {
		t.Errorf("unexpected worker settings %v", settings[api.KindWorker])
	}

	if _, err := restartSettings([]string{"bad"}, nil, nil); err == nil {
		t.Error("expected error for malformed setting")
	}
}

func TestEventFilter(t *testing.T) {
	filter, err := newEventFilter("error", "Workspace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filter.matches(events.Event{Type: events.EventTypeError, Kind: api.KindWorkspace}) {
		t.Error("expected matching event")
	}
	if filter.matches(events.Event{Type: events.EventTypeInfo, Kind: api.KindWorkspace}) {
		t.Error("expected INFO event to be filtered")
	}
	if filter.matches(events.Event{Type: events.EventTypeError, Kind: api.KindBroker}) {
		t.Error("expected broker event to be filtered")
	}

	if _, err := newEventFilter("warning", ""); err == nil {
		t.Error("expected unknown type to be rejected")
	}
}
