package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conductor/internal/api"
	"conductor/pkg/logging"
)

const subsystem = "RemoteAPI"

// Client is an api.ServiceAPI talking to the configurator REST API.
//
//	GET    {base}/{kind}s?group=g            list
//	GET    {base}/{kind}s/{name}?group=g     get
//	POST   {base}/{kind}s                    create
//	PUT    {base}/{kind}s/{name}?group=g     update
//	PUT    {base}/{kind}s/{name}/start?group=g
//	PUT    {base}/{kind}s/{name}/stop?group=g
//	DELETE {base}/{kind}s/{name}?group=g     remove
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:12345/v0.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) (*api.Snapshot, error) {
	var obj map[string]interface{}
	if err := c.do(ctx, http.MethodGet, kind, key, "", nil, &obj); err != nil {
		return nil, err
	}
	snap := toSnapshot(kind, obj)
	return &snap, nil
}

func (c *Client) List(ctx context.Context, kind api.ServiceKind, group string) ([]api.Snapshot, error) {
	var objs []map[string]interface{}
	if err := c.do(ctx, http.MethodGet, kind, api.ServiceKey{Group: group}, "", nil, &objs); err != nil {
		return nil, err
	}
	out := make([]api.Snapshot, 0, len(objs))
	for _, obj := range objs {
		out = append(out, toSnapshot(kind, obj))
	}
	return out, nil
}

func (c *Client) Start(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
	return c.do(ctx, http.MethodPut, kind, key, "start", nil, nil)
}

func (c *Client) Stop(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
	return c.do(ctx, http.MethodPut, kind, key, "stop", nil, nil)
}

func (c *Client) Create(ctx context.Context, kind api.ServiceKind, spec api.Spec) (*api.Snapshot, error) {
	var obj map[string]interface{}
	if err := c.do(ctx, http.MethodPost, kind, api.ServiceKey{}, "", spec, &obj); err != nil {
		return nil, err
	}
	snap := toSnapshot(kind, obj)
	return &snap, nil
}

func (c *Client) Remove(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
	return c.do(ctx, http.MethodDelete, kind, key, "", nil, nil)
}

func (c *Client) Update(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, settings api.Spec) (*api.Snapshot, error) {
	var obj map[string]interface{}
	if err := c.do(ctx, http.MethodPut, kind, key, "", settings, &obj); err != nil {
		return nil, err
	}
	snap := toSnapshot(kind, obj)
	return &snap, nil
}

// endpoint builds the URL of a resource. An empty key name addresses the
// collection.
func (c *Client) endpoint(kind api.ServiceKind, key api.ServiceKey, action string) string {
	u := *c.baseURL
	segments := []string{u.Path, string(kind) + "s"}
	if key.Name != "" {
		segments = append(segments, key.Name)
	}
	if action != "" {
		segments = append(segments, action)
	}
	u.Path = strings.Join(segments, "/")
	if key.Group != "" {
		u.RawQuery = url.Values{"group": []string{key.Group}}.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method string, kind api.ServiceKind, key api.ServiceKey, action string, body interface{}, out interface{}) error {
	if kind == api.KindWorkspace {
		return fmt.Errorf("workspaces are not managed by the remote API")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", kind, err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.endpoint(kind, key, action)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug(subsystem, "%s %s", method, endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response of %s %s: %w", method, endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &api.NotFoundError{Kind: kind, Key: key, Message: errorMessage(data)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg := errorMessage(data)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &api.RemoteError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, endpoint, err)
	}
	return nil
}

// errorMessage extracts the message of an error body, falling back to the
// raw text.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}

func toSnapshot(kind api.ServiceKind, obj map[string]interface{}) api.Snapshot {
	snap := api.Snapshot{Kind: kind, Raw: obj}
	snap.Key.Name, _ = obj["name"].(string)
	snap.Key.Group, _ = obj["group"].(string)
	if state, ok := obj["state"].(string); ok {
		snap.State = api.ServiceState(state)
	}
	return snap
}

var _ api.ServiceAPI = (*Client)(nil)
