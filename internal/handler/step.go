package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// AddStepRequest represents a custom checklist step
type AddStepRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Position    *int   `json:"position" validate:"omitempty,min=0"`
}

// StepListResponse is the ordered checklist with its completion percentage
type StepListResponse struct {
	Steps    []*domain.Step `json:"steps"`
	Progress int            `json:"progress"`
}

// StepHandler serves a suggestion's checklist
type StepHandler struct {
	steps  *service.StepService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewStepHandler creates a new step handler
func NewStepHandler(steps *service.StepService, authz *security.AuthorizationService, logger *slog.Logger) *StepHandler {
	return &StepHandler{steps: steps, authz: authz, logger: logger}
}

// List handles GET /api/suggestions/{id}/steps
func (h *StepHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	steps, progress, err := h.steps.ListSteps(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if steps == nil {
		steps = []*domain.Step{}
	}
	writeJSON(w, h.logger, http.StatusOK, StepListResponse{Steps: steps, Progress: progress})
}

// Add handles POST /api/suggestions/{id}/steps
func (h *StepHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req AddStepRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	step, err := h.steps.AddStep(r.Context(), actor, r.PathValue("id"), service.AddStepInput{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, step)
}

// Toggle handles POST /api/suggestions/{id}/steps/{stepID}/toggle
func (h *StepHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	step, err := h.steps.ToggleStep(r.Context(), actor, r.PathValue("id"), r.PathValue("stepID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, step)
}

// Delete handles DELETE /api/suggestions/{id}/steps/{stepID}
func (h *StepHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	if err := h.steps.DeleteStep(r.Context(), actor, r.PathValue("id"), r.PathValue("stepID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
