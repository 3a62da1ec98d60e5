// Package reconcile mirrors issue-tracker events onto task-manager items.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/domain"
	"github.com/sawpanic/taskbridge/internal/metrics"
)

// TaskClient is the subset of the task manager the reconciler drives.
type TaskClient interface {
	ListTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, in domain.TaskInput) (domain.Task, error)
	CloseTask(ctx context.Context, id string) error
}

// Config holds the reconciliation rules.
type Config struct {
	OwnerLogin string   // only issues assigned to this login are tracked
	Labels     []string // labels propagated to tasks
}

// Outcome describes what a reconciliation did.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeUpdated          Outcome = "updated"
	OutcomeClosed           Outcome = "closed"
	OutcomeSkippedAssignee  Outcome = "skipped_assignee"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	OutcomeSkippedNoMatch   Outcome = "skipped_no_match"
)

// Reconciler applies issue events to a project's tasks. It keeps no state;
// every call re-reads the project, so redelivered events are safe.
type Reconciler struct {
	cfg     Config
	tasks   TaskClient
	metrics *metrics.Registry
}

func New(cfg Config, tasks TaskClient, m *metrics.Registry) *Reconciler {
	return &Reconciler{cfg: cfg, tasks: tasks, metrics: m}
}

// Reconcile applies event to projectID with at most one write call.
func (r *Reconciler) Reconcile(ctx context.Context, event domain.IssueEvent, projectID string) (Outcome, error) {
	if !event.Action.Supported() {
		return "", apperr.Unsupported("reconcile", fmt.Errorf("unsupported action %q", event.Action))
	}

	logger := log.With().
		Str("action", string(event.Action)).
		Str("issue", event.Issue.URL).
		Str("project", projectID).
		Logger()

	if !event.Issue.AssignedTo(r.cfg.OwnerLogin) {
		logger.Info().Str("owner", r.cfg.OwnerLogin).Msg("Issue not assigned to owner, ignoring")
		return r.done(OutcomeSkippedAssignee), nil
	}

	if IsDuplicateDelivery(event) {
		logger.Info().Msg("Unmodified issue on non-opened event, treating as duplicate delivery")
		return r.done(OutcomeSkippedDuplicate), nil
	}

	content := event.Issue.Title
	description := RenderIssueLink(event.Issue.URL, event.Issue.Number)

	existing, err := r.find(ctx, projectID, content, description)
	if err != nil {
		return "", err
	}

	if event.Action == domain.ActionClosed {
		if existing == nil {
			logger.Info().Msg("No task for closed issue")
			return r.done(OutcomeSkippedNoMatch), nil
		}
		if err := r.tasks.CloseTask(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("failed to close task %s: %w", existing.ID, err)
		}
		logger.Info().Str("task", existing.ID).Msg("Closed task")
		return r.done(OutcomeClosed), nil
	}

	in := domain.TaskInput{
		Content:     content,
		Description: description,
		Labels:      FilterLabels(event.Issue.Labels, r.cfg.Labels),
	}

	if existing != nil {
		if _, err := r.tasks.UpdateTask(ctx, existing.ID, in); err != nil {
			return "", fmt.Errorf("failed to update task %s: %w", existing.ID, err)
		}
		logger.Info().Str("task", existing.ID).Strs("labels", in.Labels).Msg("Updated task")
		return r.done(OutcomeUpdated), nil
	}

	in.ProjectID = projectID
	task, err := r.tasks.CreateTask(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}
	logger.Info().Str("task", task.ID).Strs("labels", in.Labels).Msg("Created task")
	if r.metrics != nil {
		r.metrics.TasksCreated.WithLabelValues("issue").Inc()
	}
	return r.done(OutcomeCreated), nil
}

// find returns the task whose content and description both match exactly.
func (r *Reconciler) find(ctx context.Context, projectID, content, description string) (*domain.Task, error) {
	tasks, err := r.tasks.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	for i := range tasks {
		if tasks[i].Content == content && tasks[i].Description == description {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

func (r *Reconciler) done(o Outcome) Outcome {
	if r.metrics != nil {
		r.metrics.RecordReconcile(string(o))
	}
	return o
}
