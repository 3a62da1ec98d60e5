package domain

// Task is an item in the task manager.
type Task struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Due         *Due     `json:"due,omitempty"`
}

// Due is the task manager's due-date object; Date is YYYY-MM-DD.
type Due struct {
	Date string `json:"date"`
}

// TaskInput is the writable subset of a Task used for create and update calls.
type TaskInput struct {
	ProjectID   string   `json:"project_id,omitempty"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
}

// Project is the subset of a task-manager project the service reads.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
