package todoist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/domain"
	"github.com/sawpanic/taskbridge/internal/secrets"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.URL+"/", srv.Client(), secrets.Static{secrets.KeyTodoistAPIKey: "tok"})
}

func TestClient_ListTasksByProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("project_id"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"7","project_id":"p1","content":"Fix","description":"[#1](u)","labels":["bug"]}]`))
	})

	tasks, err := c.ListTasksByProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "7", tasks[0].ID)
	assert.Equal(t, []string{"bug"}, tasks[0].Labels)
}

func TestClient_CreateTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["project_id"])
		assert.Equal(t, "2024-01-03", body["due_date"])
		w.Write([]byte(`{"id":"9","content":"x"}`))
	})

	task, err := c.CreateTask(context.Background(), domain.TaskInput{ProjectID: "p1", Content: "x", DueDate: "2024-01-03"})
	require.NoError(t, err)
	assert.Equal(t, "9", task.ID)
}

func TestClient_UpdateTaskClearsLabels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/7", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []interface{}{}, body["labels"])
		_, hasProject := body["project_id"]
		assert.False(t, hasProject)
		w.Write([]byte(`{"id":"7"}`))
	})

	_, err := c.UpdateTask(context.Background(), "7", domain.TaskInput{Content: "x"})
	require.NoError(t, err)
}

func TestClient_CloseTask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks/7/close", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.CloseTask(context.Background(), "7"))
}

func TestClient_GetProjectNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := c.GetProject(context.Background(), "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestClient_MissingToken(t *testing.T) {
	c := NewWithHTTPClient("http://127.0.0.1:1", http.DefaultClient, secrets.Static{})
	_, err := c.ListTasksByProject(context.Background(), "p1")
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}
