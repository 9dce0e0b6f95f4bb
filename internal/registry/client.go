// Package registry is a client for the GBDX REST APIs: the task registry and
// workflow service, plus the catalog, ordering and S3 credential services.
package registry

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

	"github.com/dangazineu/gbdx/internal/config"
	gerrors "github.com/dangazineu/gbdx/internal/errors"
	"go.uber.org/zap"
)

const apiRoot = "/workflows/v1"

// Client talks to the workflow API. Every non-2xx response is returned as a
// TaskAPIError carrying the response body verbatim.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the API at endpoint, authenticating with a bearer token.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTasks returns the names of the tasks visible to the user.
func (c *Client) ListTasks(ctx context.Context) ([]string, error) {
	var resp struct {
		Tasks []string `json:"tasks"`
	}
	if err := c.getJSON(ctx, "/tasks", &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetTask fetches and validates the descriptor for taskType.
func (c *Client) GetTask(ctx context.Context, taskType string) (*config.TaskDescriptor, error) {
	data, err := c.GetTaskRaw(ctx, taskType)
	if err != nil {
		return nil, err
	}
	return config.ParseTaskDescriptor(data)
}

func (c *Client) GetTaskRaw(ctx context.Context, taskType string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskType), nil)
}

// RegisterTask registers a task from its JSON definition.
func (c *Client) RegisterTask(ctx context.Context, definition []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/tasks", definition)
}

func (c *Client) DeleteTask(ctx context.Context, taskType string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskType), nil)
}

func (c *Client) TaskSchema(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/schemas/TaskDescriptor", nil)
}

func (c *Client) TaskStdout(ctx context.Context, workflowID, taskID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, taskPath(workflowID, taskID, "stdout"), nil)
}

func (c *Client) TaskStderr(ctx context.Context, workflowID, taskID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, taskPath(workflowID, taskID, "stderr"), nil)
}

func taskPath(workflowID, taskID, stream string) string {
	return fmt.Sprintf("/workflows/%s/tasks/%s/%s", url.PathEscape(workflowID), url.PathEscape(taskID), stream)
}

func (c *Client) ListWorkflows(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/workflows", nil)
}

// GetWorkflow fetches the status document of a workflow.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*WorkflowStatus, error) {
	var status WorkflowStatus
	if err := c.getJSON(ctx, "/workflows/"+url.PathEscape(id), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetWorkflowRaw(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil)
}

// WorkflowEvents fetches the task state transitions of a workflow.
func (c *Client) WorkflowEvents(ctx context.Context, id string) (*EventList, error) {
	var events EventList
	if err := c.getJSON(ctx, "/workflows/"+url.PathEscape(id)+"/events", &events); err != nil {
		return nil, err
	}
	return &events, nil
}

func (c *Client) WorkflowEventsRaw(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id)+"/events", nil)
}

func (c *Client) CancelWorkflow(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(id)+"/cancel", nil)
}

// LaunchWorkflow submits a workflow definition.
func (c *Client) LaunchWorkflow(ctx context.Context, definition []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/workflows", definition)
}

func (c *Client) WorkflowSchema(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/schemas/WorkflowDescriptor", nil)
}

// MultiStatus fetches the status documents of several workflows in one request.
func (c *Client) MultiStatus(ctx context.Context, ids []string) ([]WorkflowStatus, error) {
	body, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, "/workflows/multistatus", body)
	if err != nil {
		return nil, err
	}
	var statuses []WorkflowStatus
	if err := json.Unmarshal(data, &statuses); err != nil {
		return nil, fmt.Errorf("could not decode multistatus response: %w", err)
	}
	return statuses, nil
}

func (c *Client) SearchSchema(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/workflows/search", nil)
}

// SearchWorkflows searches the workflow database. Unset fields are omitted from the request.
func (c *Client) SearchWorkflows(ctx context.Context, req SearchRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/workflows/search", body)
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return c.send(ctx, method, apiRoot+path, body)
}

// send issues a request to path under the endpoint root.
func (c *Client) send(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	target := c.endpoint + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("api request", zap.String("method", method), zap.String("url", target))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", target, err)
	}
	c.logger.Debug("api response", zap.String("url", target), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gerrors.TaskAPI(resp.StatusCode, string(data))
	}
	return data, nil
}
