// Package bridge talks to the automation runtime over its local HTTP
// control API. The runtime owns screen reading and input; this package
// exposes its executor, task handles and probes as Go interfaces.
//
// Endpoints, relative to the base URL:
//
//	GET  /executor                  {"exit_requested": bool, "current_task": string}
//	POST /executor/exit
//	GET  /tasks/{name}              {"enabled": bool, "running": bool, "info": {...}}
//	POST /tasks/{name}/enable|disable|unpause
//	PUT  /tasks/{name}/running      {"running": bool}
//	PUT  /tasks/{name}/config       {"<option>": value, ...}
//	GET  /probes/stamina            {"current": int|null, "backup": int|null}
//	GET  /probes/echo               {"count": int|null}
//	POST /game/exit
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/task"
)

// DefaultURL is where the runtime listens unless configured otherwise.
const DefaultURL = "http://127.0.0.1:8765"

// Config locates the runtime.
type Config struct {
	URL   string `mapstructure:"url" yaml:"url" json:"url"`
	Token string `mapstructure:"token" yaml:"token" json:"-"`
}

// Client is a task.Executor backed by the runtime's HTTP API.
type Client struct {
	base   string
	token  string
	client *retryablehttp.Client
}

// New returns a Client for cfg.
func New(cfg Config, client *retryablehttp.Client) *Client {
	base := cfg.URL
	if base == "" {
		base = DefaultURL
	}
	return &Client{base: strings.TrimRight(base, "/"), token: cfg.Token, client: client}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return kerrors.Wrap(kerrors.ErrCodeRuntime, "failed to encode request", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeRuntime, "failed to build request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return kerrors.Wrap(kerrors.ErrCodeRuntime, method+" "+path+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return kerrors.New(kerrors.ErrCodeRuntime,
			fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return kerrors.Wrap(kerrors.ErrCodeRuntime, "failed to decode "+path, err)
	}
	return nil
}

type executorState struct {
	ExitRequested bool   `json:"exit_requested"`
	CurrentTask   string `json:"current_task"`
}

func (c *Client) executor(ctx context.Context) (executorState, error) {
	var st executorState
	err := c.do(ctx, http.MethodGet, "/executor", nil, &st)
	return st, err
}

// ExitRequested implements task.Executor.
func (c *Client) ExitRequested(ctx context.Context) (bool, error) {
	st, err := c.executor(ctx)
	return st.ExitRequested, err
}

// RequestExit implements task.Executor.
func (c *Client) RequestExit(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/executor/exit", nil, nil)
}

// CurrentTask implements task.Executor.
func (c *Client) CurrentTask(ctx context.Context) (string, error) {
	st, err := c.executor(ctx)
	return st.CurrentTask, err
}

// Task returns a handle to the named runtime task.
func (c *Client) Task(name string) task.Task {
	return &Task{c: c, name: name}
}

// Configure sets options on a task before it is enabled.
func (c *Client) Configure(ctx context.Context, taskName string, options map[string]any) error {
	return c.do(ctx, http.MethodPut, taskPath(taskName, "config"), options, nil)
}

// ReadStamina asks the runtime to read both stamina pools from the screen.
// Values it could not read are nil.
func (c *Client) ReadStamina(ctx context.Context) (current, backup *int, err error) {
	var out struct {
		Current *int `json:"current"`
		Backup  *int `json:"backup"`
	}
	if err := c.do(ctx, http.MethodGet, "/probes/stamina", nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Current, out.Backup, nil
}

// ReadEchoCount asks the runtime for the number of echoes in the bag.
func (c *Client) ReadEchoCount(ctx context.Context) (*int, error) {
	var out struct {
		Count *int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/probes/echo", nil, &out); err != nil {
		return nil, err
	}
	return out.Count, nil
}

// ExitGame closes the game client.
func (c *Client) ExitGame(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/game/exit", nil, nil)
}

func taskPath(name string, action ...string) string {
	p := "/tasks/" + url.PathEscape(name)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

// Task is a runtime task handle.
type Task struct {
	c    *Client
	name string
}

// Name implements task.Task.
func (t *Task) Name() string { return t.name }

// Enable implements task.Task.
func (t *Task) Enable(ctx context.Context) error {
	return t.c.do(ctx, http.MethodPost, taskPath(t.name, "enable"), nil, nil)
}

// Disable implements task.Task.
func (t *Task) Disable(ctx context.Context) error {
	return t.c.do(ctx, http.MethodPost, taskPath(t.name, "disable"), nil, nil)
}

// Unpause implements task.Task.
func (t *Task) Unpause(ctx context.Context) error {
	return t.c.do(ctx, http.MethodPost, taskPath(t.name, "unpause"), nil, nil)
}

// Status implements task.Task.
func (t *Task) Status(ctx context.Context) (task.Status, error) {
	var st task.Status
	if err := t.c.do(ctx, http.MethodGet, taskPath(t.name), nil, &st); err != nil {
		return task.Status{}, err
	}
	if st.Info == nil {
		st.Info = task.Info{}
	}
	return st, nil
}

// SetRunning implements task.Task.
func (t *Task) SetRunning(ctx context.Context, running bool) error {
	return t.c.do(ctx, http.MethodPut, taskPath(t.name, "running"), map[string]bool{"running": running}, nil)
}
