package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// CreateTaskRequest represents a new task. step_index addresses the
// suggestion's recommended_action list; omit it for a general task.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	StepIndex   *int       `json:"step_index"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
}

// UpdateTaskRequest edits task details
type UpdateTaskRequest struct {
	Title        *string    `json:"title" validate:"omitempty,max=255"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
}

// TaskResponse represents a task in responses
type TaskResponse struct {
	ID           string            `json:"id"`
	SuggestionID string            `json:"suggestion_id"`
	StepIndex    *int              `json:"step_index"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       domain.TaskStatus `json:"status"`
	DueDate      *time.Time        `json:"due_date"`
	CompletedAt  *time.Time        `json:"completed_at"`
	CompletedBy  *string           `json:"completed_by"`
	CreatedBy    string            `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		SuggestionID: t.SuggestionID,
		StepIndex:    t.Scope.Index(),
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		DueDate:      t.DueDate,
		CompletedAt:  t.CompletedAt,
		CompletedBy:  t.CompletedBy,
		CreatedBy:    t.CreatedBy,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func taskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

// TaskHandler serves a suggestion's tasks
type TaskHandler struct {
	tasks  *service.TaskService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *service.TaskService, authz *security.AuthorizationService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, authz: authz, logger: logger}
}

// List handles GET /api/suggestions/{id}/tasks?general=true|step_index=N
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	general, err := queryBool(r, "general")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	idx, err := queryInt(r, "step_index")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	tasks, err := h.tasks.ListTasks(r.Context(), actor, r.PathValue("id"), service.TaskFilter{GeneralOnly: general, StepIndex: idx})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, taskResponses(tasks))
}

// Create handles POST /api/suggestions/{id}/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	task, err := h.tasks.CreateTask(r.Context(), actor, r.PathValue("id"), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		StepIndex:   req.StepIndex,
		DueDate:     req.DueDate,
		Status:      domain.TaskStatus(req.Status),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, taskToResponse(task))
}

// Update handles PATCH /api/suggestions/{id}/tasks/{taskID}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	task, err := h.tasks.UpdateTask(r.Context(), actor, r.PathValue("id"), r.PathValue("taskID"), service.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, taskToResponse(task))
}

// Start handles POST /api/suggestions/{id}/tasks/{taskID}/start
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.tasks.Start)
}

// Complete handles POST /api/suggestions/{id}/tasks/{taskID}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.tasks.Complete)
}

// Uncomplete handles POST /api/suggestions/{id}/tasks/{taskID}/uncomplete
func (h *TaskHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.tasks.Uncomplete)
}

func (h *TaskHandler) move(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor domain.Actor, suggestionID, taskID string) (*domain.Task, error)) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	task, err := fn(r.Context(), actor, r.PathValue("id"), r.PathValue("taskID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, taskToResponse(task))
}

// Delete handles DELETE /api/suggestions/{id}/tasks/{taskID}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(r.Context(), actor, r.PathValue("id"), r.PathValue("taskID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
