package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// ImpactHandler serves the impact dashboard
type ImpactHandler struct {
	impact *service.ImpactService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewImpactHandler creates a new impact handler
func NewImpactHandler(impact *service.ImpactService, authz *security.AuthorizationService, logger *slog.Logger) *ImpactHandler {
	return &ImpactHandler{impact: impact, authz: authz, logger: logger}
}

// Dashboard handles GET /api/impact/dashboard
func (h *ImpactHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermViewImpact)
	if !ok {
		return
	}
	d, err := h.impact.Dashboard(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, d)
}
