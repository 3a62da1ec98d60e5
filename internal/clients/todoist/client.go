// Package todoist is a minimal client for the Todoist REST API.
package todoist

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/clients"
	"github.com/sawpanic/taskbridge/internal/config"
	"github.com/sawpanic/taskbridge/internal/domain"
	netclient "github.com/sawpanic/taskbridge/internal/net/client"
	"github.com/sawpanic/taskbridge/internal/secrets"
)

const service = "todoist"

// Client talks to the Todoist REST API with the token from its secret provider.
type Client struct {
	hc      *http.Client
	baseURL string
	tokens  secrets.SecretProvider
	wrapper *netclient.Wrapper
}

// New builds a client with a rate-limited, circuit-broken transport.
func New(cfg config.TodoistConfig, tokens secrets.SecretProvider) *Client {
	hc, w := netclient.NewHTTPClient(netclient.WrapperConfig{
		Provider: service,
		RPS:      cfg.RPS,
		Burst:    cfg.Burst,
	}, cfg.Timeout)
	c := NewWithHTTPClient(cfg.BaseURL, hc, tokens)
	c.wrapper = w
	return c
}

// NewWithHTTPClient builds a client over an arbitrary *http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client, tokens secrets.SecretProvider) *Client {
	return &Client{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens}
}

// Breaker exposes the transport wrapper for health reporting; nil for custom clients.
func (c *Client) Breaker() *netclient.Wrapper { return c.wrapper }

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	token, err := secrets.Lookup(ctx, c.tokens, secrets.KeyTodoistAPIKey)
	if err != nil {
		return apperr.Configuration(op, err)
	}
	return clients.Do(ctx, c.hc, clients.Request{
		Op:      op,
		Service: service,
		Method:  method,
		URL:     c.baseURL + path,
		Token:   token,
		Body:    body,
		Out:     out,
	})
}

// ListTasksByProject returns the active tasks of projectID.
func (c *Client) ListTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	var tasks []domain.Task
	path := "/tasks?project_id=" + url.QueryEscape(projectID)
	if err := c.do(ctx, "todoist.list_tasks", http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask adds a task.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, "todoist.create_task", http.MethodPost, "/tasks", in, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

type updateBody struct {
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
}

// UpdateTask replaces content, description and labels of task id.
// An empty label set clears the task's labels.
func (c *Client) UpdateTask(ctx context.Context, id string, in domain.TaskInput) (domain.Task, error) {
	body := updateBody{Content: in.Content, Description: in.Description, Labels: in.Labels}
	if body.Labels == nil {
		body.Labels = []string{}
	}
	var task domain.Task
	path := "/tasks/" + url.PathEscape(id)
	if err := c.do(ctx, "todoist.update_task", http.MethodPost, path, body, &task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// CloseTask completes task id.
func (c *Client) CloseTask(ctx context.Context, id string) error {
	path := fmt.Sprintf("/tasks/%s/close", url.PathEscape(id))
	return c.do(ctx, "todoist.close_task", http.MethodPost, path, nil, nil)
}

// GetProject returns project id, or an apperr.NotFound error.
func (c *Client) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, "todoist.get_project", http.MethodGet, "/projects/"+url.PathEscape(id), nil, &p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}
