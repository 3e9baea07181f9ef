package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// GrantCreditsRequest represents an admin credit grant
type GrantCreditsRequest struct {
	Amount int `json:"amount" validate:"required,min=1,max=100000"`
}

// CreditsResponse reports a balance
type CreditsResponse struct {
	UserID  string `json:"user_id"`
	Credits int    `json:"credits"`
}

// CreditHandler serves credit balances and grants
type CreditHandler struct {
	credits *service.CreditService
	authz   *security.AuthorizationService
	logger  *slog.Logger
}

// NewCreditHandler creates a new credit handler
func NewCreditHandler(credits *service.CreditService, authz *security.AuthorizationService, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{credits: credits, authz: authz, logger: logger}
}

// Balance handles GET /api/credits
func (h *CreditHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermViewCredits)
	if !ok {
		return
	}
	bal, err := h.credits.Balance(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CreditsResponse{UserID: actor.UserID, Credits: bal})
}

// Grant handles POST /api/admin/users/{id}/credits
func (h *CreditHandler) Grant(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermGrantCredits)
	if !ok {
		return
	}
	var req GrantCreditsRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	userID := r.PathValue("id")
	bal, err := h.credits.Grant(r.Context(), actor, userID, req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, CreditsResponse{UserID: userID, Credits: bal})
}
