package domain

import (
	"context"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is a due-dated action item under a suggestion.
type Task struct {
	ID           string
	SuggestionID string
	Scope        TaskScope
	Title        string
	Description  string
	Status       TaskStatus
	DueDate      *time.Time
	CompletedAt  *time.Time
	CompletedBy  *string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsGeneral reports whether the task is not linked to an action step.
func (t *Task) IsGeneral() bool { return t.Scope.Kind == ScopeGeneral }

// IsLinkedToStep reports whether the task references a recommended action.
func (t *Task) IsLinkedToStep() bool { return t.Scope.Kind == ScopeStep }

// Start moves a pending task to in_progress.
func (t *Task) Start() error {
	if t.Status != TaskPending {
		return t.reject(TaskInProgress)
	}
	t.Status = TaskInProgress
	return nil
}

// Complete finishes a pending or in-progress task and stamps the completer.
func (t *Task) Complete(userID string, at time.Time) error {
	if t.Status != TaskPending && t.Status != TaskInProgress {
		return t.reject(TaskCompleted)
	}
	t.Status = TaskCompleted
	t.CompletedAt = &at
	t.CompletedBy = &userID
	return nil
}

// Uncomplete reopens a completed task and clears the completion stamp.
func (t *Task) Uncomplete() error {
	if t.Status != TaskCompleted {
		return t.reject(TaskPending)
	}
	t.Status = TaskPending
	t.CompletedAt = nil
	t.CompletedBy = nil
	return nil
}

func (t *Task) reject(to TaskStatus) error {
	return &TransitionError{Entity: "task", From: string(t.Status), To: string(to)}
}

// TaskRepository persists tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
	ListBySuggestion(ctx context.Context, suggestionID string) ([]*Task, error)
}
