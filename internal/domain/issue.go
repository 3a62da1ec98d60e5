package domain

import "time"

// IssueAction is the "action" field of an issues webhook delivery.
type IssueAction string

const (
	ActionOpened     IssueAction = "opened"
	ActionAssigned   IssueAction = "assigned"
	ActionUnassigned IssueAction = "unassigned"
	ActionLabeled    IssueAction = "labeled"
	ActionUnlabeled  IssueAction = "unlabeled"
	ActionClosed     IssueAction = "closed"
)

// Supported reports whether the action is one the reconciler handles.
func (a IssueAction) Supported() bool {
	switch a {
	case ActionOpened, ActionAssigned, ActionUnassigned, ActionLabeled, ActionUnlabeled, ActionClosed:
		return true
	}
	return false
}

// IssueEvent is a single issues webhook delivery.
type IssueEvent struct {
	Action IssueAction `json:"action"`
	Issue  Issue       `json:"issue"`
}

// Issue carries the fields of an issue that drive reconciliation.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	URL       string    `json:"html_url"`
	Assignees []User    `json:"assignees"`
	Labels    []Label   `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	Login string `json:"login"`
}

type Label struct {
	Name string `json:"name"`
}

// AssignedTo reports whether login is among the issue's assignees.
func (i Issue) AssignedTo(login string) bool {
	for _, a := range i.Assignees {
		if a.Login == login {
			return true
		}
	}
	return false
}
