package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeConfigurator is a minimal in-memory remote API. Objects are keyed by
// collection and name; groups are echoed but not used for lookups.
type fakeConfigurator struct {
	mu      sync.Mutex
	objects map[string]map[string]interface{}
	calls   []string
}

func newFakeConfigurator() *fakeConfigurator {
	return &fakeConfigurator{objects: make(map[string]map[string]interface{})}
}

func (f *fakeConfigurator) put(collection, group, name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj := map[string]interface{}{"name": name, "group": group}
	if state != "" {
		obj["state"] = state
	}
	f.objects[collection+"/"+name] = obj
}

func (f *fakeConfigurator) mutatingCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeConfigurator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v0/"), "/")
	collection := parts[0]

	if len(parts) == 1 && r.Method == http.MethodGet {
		group := r.URL.Query().Get("group")
		var out []map[string]interface{}
		for id, obj := range f.objects {
			if strings.HasPrefix(id, collection+"/") && obj["group"] == group {
				out = append(out, obj)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i]["name"].(string) < out[j]["name"].(string) })
		writeJSON(w, http.StatusOK, out)
		return
	}

	id := collection + "/" + parts[1]
	obj, found := f.objects[id]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no object " + id})
		return
	}

	switch {
	case r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, obj)
	case r.Method == http.MethodPut && len(parts) == 3:
		f.calls = append(f.calls, parts[2]+" "+id)
		if parts[2] == "start" {
			obj["state"] = "RUNNING"
		} else {
			delete(obj, "state")
		}
		w.WriteHeader(http.StatusAccepted)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update "+id)
		var settings map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&settings)
		for k, v := range settings {
			obj[k] = v
		}
		writeJSON(w, http.StatusOK, obj)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// startFakeConfigurator serves fake on a test server and writes a config
// directory pointing at it. It returns the config directory.
func startFakeConfigurator(t *testing.T, fake *fakeConfigurator) string {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	configYAML := "remote:\n  baseURL: " + server.URL + "/v0\n" +
		"retry:\n  interval: 1ms\n" +
		"events:\n  log: false\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "workspaces"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}
