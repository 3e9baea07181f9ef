package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// AddCommentRequest represents a new comment. step_id anchors it to a step.
type AddCommentRequest struct {
	Content string  `json:"content" validate:"required,max=5000"`
	StepID  *string `json:"step_id"`
}

// CommentResponse represents a comment in responses
type CommentResponse struct {
	ID           string    `json:"id"`
	SuggestionID string    `json:"suggestion_id"`
	StepID       *string   `json:"step_id"`
	UserID       string    `json:"user_id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

func commentToResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:           c.ID,
		SuggestionID: c.SuggestionID,
		StepID:       c.Scope.Ref(),
		UserID:       c.UserID,
		Content:      c.Content,
		CreatedAt:    c.CreatedAt,
	}
}

func commentResponses(comments []*domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentToResponse(c))
	}
	return out
}

// CommentHandler serves a suggestion's discussion thread
type CommentHandler struct {
	comments *service.CommentService
	authz    *security.AuthorizationService
	logger   *slog.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(comments *service.CommentService, authz *security.AuthorizationService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, authz: authz, logger: logger}
}

// List handles GET /api/suggestions/{id}/comments?general=true|step_id=
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	general, err := queryBool(r, "general")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	filter := service.CommentFilter{GeneralOnly: general, StepID: r.URL.Query().Get("step_id")}
	comments, err := h.comments.ListComments(r.Context(), actor, r.PathValue("id"), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, commentResponses(comments))
}

// Add handles POST /api/suggestions/{id}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	var req AddCommentRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	c, err := h.comments.AddComment(r.Context(), actor, r.PathValue("id"), req.Content, req.StepID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, commentToResponse(c))
}

// Delete handles DELETE /api/suggestions/{id}/comments/{commentID}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermManageSuggestions)
	if !ok {
		return
	}
	if err := h.comments.DeleteComment(r.Context(), actor, r.PathValue("id"), r.PathValue("commentID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
