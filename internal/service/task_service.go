package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
)

// CreateTaskInput describes a new task. A nil StepIndex makes a general
// task; an empty Status means pending.
type CreateTaskInput struct {
	Title       string
	Description string
	StepIndex   *int
	DueDate     *time.Time
	Status      domain.TaskStatus
}

// UpdateTaskInput changes task details. Status moves through Start,
// Complete and Uncomplete only.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
}

// TaskFilter narrows ListTasks. The zero value lists every task.
type TaskFilter struct {
	GeneralOnly bool
	StepIndex   *int
}

// TaskService manages a suggestion's tasks
type TaskService struct {
	uow    domain.UnitOfWork
	audit  *audit.Logger
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(uow domain.UnitOfWork, auditLog *audit.Logger, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{uow: uow, audit: auditLog, logger: logger, now: utcNow}
}

// CreateTask adds a task. A step index is checked against the suggestion's
// recommended actions, not against step rows.
func (s *TaskService) CreateTask(ctx context.Context, actor domain.Actor, suggestionID string, in CreateTaskInput) (*domain.Task, error) {
	title, err := cleanText("title", in.Title, 255)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = domain.TaskPending
	}
	if !status.Valid() {
		return nil, domain.Validationf("unknown task status %q", status)
	}

	var task *domain.Task
	err = s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		sg, err := loadSuggestion(ctx, r, actor, suggestionID, true)
		if err != nil {
			return err
		}
		if in.StepIndex != nil && !sg.HasStepIndex(*in.StepIndex) {
			return domain.ErrInvalidStepIndex
		}

		now := s.now()
		task = &domain.Task{
			ID:           newID(),
			SuggestionID: suggestionID,
			Scope:        domain.TaskScopeFrom(in.StepIndex),
			Title:        title,
			Description:  in.Description,
			Status:       domain.TaskPending,
			DueDate:      in.DueDate,
			CreatedBy:    actor.UserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		switch status {
		case domain.TaskInProgress:
			err = task.Start()
		case domain.TaskCompleted:
			err = task.Complete(actor.UserID, now)
		}
		if err != nil {
			return err
		}
		return r.Tasks().Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogMutation(ctx, actor, "create_task", "suggestion_task", task.ID)
	return task, nil
}

// UpdateTask edits title, description or due date.
func (s *TaskService) UpdateTask(ctx context.Context, actor domain.Actor, suggestionID, taskID string, in UpdateTaskInput) (*domain.Task, error) {
	var title string
	if in.Title != nil {
		var err error
		if title, err = cleanText("title", *in.Title, 255); err != nil {
			return nil, err
		}
	}

	var task *domain.Task
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		var err error
		if task, err = s.taskOf(ctx, r, actor, suggestionID, taskID); err != nil {
			return err
		}
		if in.Title != nil {
			task.Title = title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		switch {
		case in.ClearDueDate:
			task.DueDate = nil
		case in.DueDate != nil:
			due := *in.DueDate
			task.DueDate = &due
		}
		task.UpdatedAt = s.now()
		return r.Tasks().Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogMutation(ctx, actor, "update_task", "suggestion_task", taskID)
	return task, nil
}

// Start moves a pending task to in_progress.
func (s *TaskService) Start(ctx context.Context, actor domain.Actor, suggestionID, taskID string) (*domain.Task, error) {
	return s.transition(ctx, actor, suggestionID, taskID, func(t *domain.Task, _ time.Time) error {
		return t.Start()
	})
}

// Complete finishes a pending or in-progress task, stamping the completer.
func (s *TaskService) Complete(ctx context.Context, actor domain.Actor, suggestionID, taskID string) (*domain.Task, error) {
	return s.transition(ctx, actor, suggestionID, taskID, func(t *domain.Task, now time.Time) error {
		return t.Complete(actor.UserID, now)
	})
}

// Uncomplete reopens a completed task and clears the completion stamp.
func (s *TaskService) Uncomplete(ctx context.Context, actor domain.Actor, suggestionID, taskID string) (*domain.Task, error) {
	return s.transition(ctx, actor, suggestionID, taskID, func(t *domain.Task, _ time.Time) error {
		return t.Uncomplete()
	})
}

func (s *TaskService) transition(ctx context.Context, actor domain.Actor, suggestionID, taskID string, move func(*domain.Task, time.Time) error) (*domain.Task, error) {
	var task *domain.Task
	var from domain.TaskStatus
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		var err error
		if task, err = s.taskOf(ctx, r, actor, suggestionID, taskID); err != nil {
			return err
		}
		from = task.Status
		now := s.now()
		if err := move(task, now); err != nil {
			return err
		}
		task.UpdatedAt = now
		return r.Tasks().Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogStatusChange(ctx, actor, "suggestion_task", taskID, string(from), string(task.Status))
	return task, nil
}

// DeleteTask removes a task. Only its creator or an admin may delete it.
func (s *TaskService) DeleteTask(ctx context.Context, actor domain.Actor, suggestionID, taskID string) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		task, err := s.taskOf(ctx, r, actor, suggestionID, taskID)
		if err != nil {
			return err
		}
		if task.CreatedBy != actor.UserID && !actor.Role.Elevated() {
			return domain.ErrForbidden
		}
		return r.Tasks().Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}

	s.audit.LogMutation(ctx, actor, "delete_task", "suggestion_task", taskID)
	return nil
}

// ListTasks returns a suggestion's tasks in creation order.
func (s *TaskService) ListTasks(ctx context.Context, actor domain.Actor, suggestionID string, f TaskFilter) ([]*domain.Task, error) {
	if _, err := loadSuggestion(ctx, s.uow, actor, suggestionID, false); err != nil {
		return nil, err
	}
	tasks, err := s.uow.Tasks().ListBySuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if !f.GeneralOnly && f.StepIndex == nil {
		return tasks, nil
	}

	out := tasks[:0]
	for _, t := range tasks {
		switch {
		case f.GeneralOnly && t.IsGeneral():
			out = append(out, t)
		case f.StepIndex != nil && t.IsLinkedToStep() && t.Scope.StepIndex == *f.StepIndex:
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskService) taskOf(ctx context.Context, r domain.Repositories, actor domain.Actor, suggestionID, taskID string) (*domain.Task, error) {
	if _, err := loadSuggestion(ctx, r, actor, suggestionID, true); err != nil {
		return nil, err
	}
	task, err := r.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.SuggestionID != suggestionID {
		return nil, domain.ErrNotFound
	}
	return task, nil
}
