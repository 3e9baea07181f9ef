package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// CreateSuggestionRequest represents a manually entered suggestion
type CreateSuggestionRequest struct {
	Category          string   `json:"category" validate:"max=100"`
	Title             string   `json:"title" validate:"required,max=255"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	RecommendedAction []string `json:"recommended_action" validate:"dive,required,max=1000"`
}

// UpdateStatusRequest moves a suggestion along its state machine
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// FeedbackRequest records whether a suggestion worked. null clears it.
type FeedbackRequest struct {
	WasSuccessful *bool `json:"was_successful"`
}

// SuggestionDetailResponse is a suggestion with its checklist, tasks and thread
type SuggestionDetailResponse struct {
	*domain.Suggestion
	Steps    []*domain.Step    `json:"steps"`
	Tasks    []TaskResponse    `json:"tasks"`
	Comments []CommentResponse `json:"comments"`
	Progress int               `json:"progress"`
}

// SuggestionHandler serves the suggestion lifecycle
type SuggestionHandler struct {
	suggestions *service.SuggestionService
	authz       *security.AuthorizationService
	logger      *slog.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestions *service.SuggestionService, authz *security.AuthorizationService, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, authz: authz, logger: logger}
}

// List handles GET /api/suggestions?status=&category=
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	filter := domain.SuggestionFilter{
		Status:   domain.SuggestionStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
	}
	list, err := h.suggestions.List(r.Context(), actor, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []*domain.Suggestion{}
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

// Create handles POST /api/suggestions
func (h *SuggestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req CreateSuggestionRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	sg, err := h.suggestions.Create(r.Context(), actor, service.CreateSuggestionInput{
		Category:          req.Category,
		Title:             req.Title,
		Description:       req.Description,
		Priority:          req.Priority,
		RecommendedAction: req.RecommendedAction,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, sg)
}

// Get handles GET /api/suggestions/{id}
func (h *SuggestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	d, err := h.suggestions.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	steps := d.Steps
	if steps == nil {
		steps = []*domain.Step{}
	}
	writeJSON(w, h.logger, http.StatusOK, SuggestionDetailResponse{
		Suggestion: d.Suggestion,
		Steps:      steps,
		Tasks:      taskResponses(d.Tasks),
		Comments:   commentResponses(d.Comments),
		Progress:   d.Progress,
	})
}

// UpdateStatus handles PATCH /api/suggestions/{id}/status
func (h *SuggestionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	sg, err := h.suggestions.UpdateStatus(r.Context(), actor, r.PathValue("id"), domain.SuggestionStatus(req.Status))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sg)
}

// Accept handles POST /api/suggestions/{id}/accept
func (h *SuggestionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.suggestions.Accept)
}

// Reject handles POST /api/suggestions/{id}/reject
func (h *SuggestionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.suggestions.Reject)
}

func (h *SuggestionHandler) move(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor domain.Actor, id string) (*domain.Suggestion, error)) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	sg, err := fn(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sg)
}

// Feedback handles PATCH /api/suggestions/{id}/feedback
func (h *SuggestionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req FeedbackRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	sg, err := h.suggestions.SetFeedback(r.Context(), actor, r.PathValue("id"), req.WasSuccessful)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sg)
}
