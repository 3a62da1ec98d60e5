package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/config"
	"github.com/sawpanic/taskbridge/internal/domain"
	"github.com/sawpanic/taskbridge/internal/metrics"
)

type call struct {
	Method string
	ID     string
	Input  domain.TaskInput
}

// fakeTasks is an in-memory task manager that records write calls.
type fakeTasks struct {
	tasks   []domain.Task
	calls   []call
	lists   int
	listErr error
	nextID  int
}

func (f *fakeTasks) ListTasksByProject(_ context.Context, projectID string) ([]domain.Task, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) CreateTask(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	f.nextID++
	t := domain.Task{ID: string(rune('a' + f.nextID - 1)), ProjectID: in.ProjectID, Content: in.Content, Description: in.Description, Labels: in.Labels}
	f.tasks = append(f.tasks, t)
	f.calls = append(f.calls, call{Method: "create", ID: t.ID, Input: in})
	return t, nil
}

func (f *fakeTasks) UpdateTask(_ context.Context, id string, in domain.TaskInput) (domain.Task, error) {
	f.calls = append(f.calls, call{Method: "update", ID: id, Input: in})
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Content, f.tasks[i].Description, f.tasks[i].Labels = in.Content, in.Description, in.Labels
			return f.tasks[i], nil
		}
	}
	return domain.Task{}, apperr.NotFound("update", errors.New("no task"))
}

func (f *fakeTasks) CloseTask(_ context.Context, id string) error {
	f.calls = append(f.calls, call{Method: "close", ID: id})
	return nil
}

var created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func issueEvent(action domain.IssueAction, assignees ...string) domain.IssueEvent {
	e := domain.IssueEvent{
		Action: action,
		Issue: domain.Issue{
			Number:    42,
			Title:     "Crash on login",
			URL:       "https://github.com/acme/app/issues/42",
			Labels:    []domain.Label{{Name: "bug"}, {Name: "typo"}, {Name: "size: small"}},
			CreatedAt: created,
			UpdatedAt: created.Add(time.Minute),
		},
	}
	for _, a := range assignees {
		e.Issue.Assignees = append(e.Issue.Assignees, domain.User{Login: a})
	}
	return e
}

func newReconciler(f *fakeTasks) *Reconciler {
	return New(Config{OwnerLogin: "me", Labels: config.DefaultLabels}, f, metrics.New())
}

func TestReconcile_NotAssignedToOwnerMakesNoCalls(t *testing.T) {
	for _, action := range []domain.IssueAction{domain.ActionOpened, domain.ActionAssigned, domain.ActionUnassigned, domain.ActionLabeled, domain.ActionUnlabeled, domain.ActionClosed} {
		t.Run(string(action), func(t *testing.T) {
			f := &fakeTasks{}
			out, err := newReconciler(f).Reconcile(context.Background(), issueEvent(action, "someone-else"), "p1")
			require.NoError(t, err)
			assert.Equal(t, OutcomeSkippedAssignee, out)
			assert.Zero(t, f.lists)
			assert.Empty(t, f.calls)
		})
	}
}

func TestReconcile_DuplicateDelivery(t *testing.T) {
	f := &fakeTasks{}
	e := issueEvent(domain.ActionAssigned, "me")
	e.Issue.UpdatedAt = e.Issue.CreatedAt

	out, err := newReconciler(f).Reconcile(context.Background(), e, "p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedDuplicate, out)
	assert.Empty(t, f.calls)
}

func TestReconcile_OpenedCreatesWithWhitelistedLabels(t *testing.T) {
	f := &fakeTasks{}
	e := issueEvent(domain.ActionOpened, "me")
	e.Issue.UpdatedAt = e.Issue.CreatedAt // opened events are never duplicates

	out, err := newReconciler(f).Reconcile(context.Background(), e, "p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, out)

	require.Len(t, f.calls, 1)
	c := f.calls[0]
	assert.Equal(t, "create", c.Method)
	assert.Equal(t, "p1", c.Input.ProjectID)
	assert.Equal(t, "Crash on login", c.Input.Content)
	assert.Equal(t, "[#42](https://github.com/acme/app/issues/42)", c.Input.Description)
	assert.Equal(t, []string{"bug", "size: small"}, c.Input.Labels)
}

func TestReconcile_RedeliveryIsIdempotent(t *testing.T) {
	f := &fakeTasks{}
	r := newReconciler(f)
	e := issueEvent(domain.ActionOpened, "me")

	_, err := r.Reconcile(context.Background(), e, "p1")
	require.NoError(t, err)
	before := append([]domain.Task(nil), f.tasks...)

	out, err := r.Reconcile(context.Background(), e, "p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	require.Len(t, f.calls, 2)
	assert.Equal(t, "update", f.calls[1].Method)
	assert.Equal(t, before[0].ID, f.calls[1].ID)
	assert.Equal(t, before, f.tasks, "second delivery leaves task state unchanged")
}

func TestReconcile_LabelChangeUpdatesInPlace(t *testing.T) {
	f := &fakeTasks{tasks: []domain.Task{{
		ID: "t1", ProjectID: "p1", Content: "Crash on login",
		Description: "[#42](https://github.com/acme/app/issues/42)", Labels: []string{"bug"},
	}}}
	e := issueEvent(domain.ActionUnlabeled, "me")
	e.Issue.Labels = []domain.Label{{Name: "wontfix"}}

	out, err := newReconciler(f).Reconcile(context.Background(), e, "p1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "t1", f.calls[0].ID)
	assert.Equal(t, []string{}, f.calls[0].Input.Labels)
}

func TestReconcile_Closed(t *testing.T) {
	t.Run("no matching task", func(t *testing.T) {
		f := &fakeTasks{tasks: []domain.Task{{ID: "x", ProjectID: "p1", Content: "Other", Description: "[#1](u)"}}}
		out, err := newReconciler(f).Reconcile(context.Background(), issueEvent(domain.ActionClosed, "me"), "p1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkippedNoMatch, out)
		assert.Empty(t, f.calls)
	})

	t.Run("matching task", func(t *testing.T) {
		f := &fakeTasks{tasks: []domain.Task{
			{ID: "x", ProjectID: "p1", Content: "Crash on login", Description: "[#41](https://github.com/acme/app/issues/41)"},
			{ID: "t1", ProjectID: "p1", Content: "Crash on login", Description: "[#42](https://github.com/acme/app/issues/42)"},
		}}
		out, err := newReconciler(f).Reconcile(context.Background(), issueEvent(domain.ActionClosed, "me"), "p1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeClosed, out)
		assert.Equal(t, []call{{Method: "close", ID: "t1"}}, f.calls)
	})
}

func TestReconcile_Errors(t *testing.T) {
	t.Run("unsupported action", func(t *testing.T) {
		f := &fakeTasks{}
		_, err := newReconciler(f).Reconcile(context.Background(), issueEvent("transferred", "me"), "p1")
		assert.True(t, apperr.Is(err, apperr.KindUnsupported))
		assert.Zero(t, f.lists)
	})

	t.Run("lookup failure keeps its kind", func(t *testing.T) {
		f := &fakeTasks{listErr: apperr.Upstream("todoist.list_tasks", errors.New("timeout"))}
		_, err := newReconciler(f).Reconcile(context.Background(), issueEvent(domain.ActionOpened, "me"), "p1")
		assert.True(t, apperr.Is(err, apperr.KindUpstream))
		assert.Empty(t, f.calls)
	})
}
