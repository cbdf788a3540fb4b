package types

import "time"

// TaskPriority orders tasks on the dashboard
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task is a user to-do item
type Task struct {
	Id         uint         `json:"-"`
	ExternalId string       `json:"id"`
	UserId     uint         `json:"-"`
	Title      string       `json:"title"`
	Notes      string       `json:"notes,omitempty"`
	Priority   TaskPriority `json:"priority"`
	DueAt      *time.Time   `json:"due_at,omitempty"`
	Done       bool         `json:"done"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TaskUpdate carries a partial task update; nil fields are left untouched
type TaskUpdate struct {
	Title    *string       `json:"title,omitempty"`
	Notes    *string       `json:"notes,omitempty"`
	Priority *TaskPriority `json:"priority,omitempty"`
	DueAt    *time.Time    `json:"due_at,omitempty"`
	Done     *bool         `json:"done,omitempty"`
}
