package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security"
	"github.com/aryan0dhankhar/storepulse/internal/service"
)

// ProposedSuggestionRequest is one AI recommendation in a processor callback
type ProposedSuggestionRequest struct {
	Category          string   `json:"category" validate:"max=100"`
	Title             string   `json:"title" validate:"required,max=255"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	RecommendedAction []string `json:"recommended_action" validate:"dive,required,max=1000"`
}

// AnalysisResultRequest is the job processor's report for an analysis
type AnalysisResultRequest struct {
	Status        string                      `json:"status" validate:"required,oneof=processing completed failed"`
	Summary       string                      `json:"summary"`
	Suggestions   []ProposedSuggestionRequest `json:"suggestions" validate:"dive"`
	Alerts        json.RawMessage             `json:"alerts"`
	Opportunities json.RawMessage             `json:"opportunities"`
	CreditsUsed   *int                        `json:"credits_used" validate:"omitempty,min=0"`
	Reason        string                      `json:"reason" validate:"max=1000"`
}

func (req AnalysisResultRequest) toResult() domain.AnalysisResult {
	proposed := make([]domain.ProposedSuggestion, 0, len(req.Suggestions))
	for _, s := range req.Suggestions {
		proposed = append(proposed, domain.ProposedSuggestion{
			Category:          s.Category,
			Title:             s.Title,
			Description:       s.Description,
			Priority:          s.Priority,
			RecommendedAction: s.RecommendedAction,
		})
	}
	return domain.AnalysisResult{
		Status:        domain.AnalysisStatus(req.Status),
		Summary:       req.Summary,
		Suggestions:   proposed,
		Alerts:        req.Alerts,
		Opportunities: req.Opportunities,
		CreditsUsed:   req.CreditsUsed,
		Reason:        req.Reason,
	}
}

// AnalysisHandler serves analysis admission and the processor callbacks
type AnalysisHandler struct {
	admission *service.AdmissionService
	analyses  *service.AnalysisService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(
	admission *service.AdmissionService,
	analyses *service.AnalysisService,
	authz *security.AuthorizationService,
	logger *slog.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		admission: admission,
		analyses:  analyses,
		authz:     authz,
		logger:    logger,
	}
}

// Request handles POST /api/analyses
func (h *AnalysisHandler) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermRequestAnalysis)
	if !ok {
		return
	}
	a, err := h.admission.RequestAnalysis(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, a)
}

// Current handles GET /api/analyses/current
func (h *AnalysisHandler) Current(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermReadAnalysis)
	if !ok {
		return
	}
	a, err := h.admission.Current(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, a)
}

// Admission handles GET /api/analyses/admission
func (h *AnalysisHandler) Admission(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermRequestAnalysis)
	if !ok {
		return
	}
	st, err := h.admission.Status(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, st)
}

// List handles GET /api/analyses?limit=
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermReadAnalysis)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}
	list, err := h.analyses.ListForStore(r.Context(), actor, n)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []*domain.Analysis{}
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

// Get handles GET /api/analyses/{id}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermReadAnalysis)
	if !ok {
		return
	}
	a, err := h.analyses.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, a)
}

// Processing handles POST /internal/analyses/{id}/processing
func (h *AnalysisHandler) Processing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermReportAnalysis)
	if !ok {
		return
	}
	a, err := h.analyses.MarkProcessing(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, a)
}

// Result handles POST /internal/analyses/{id}/result
func (h *AnalysisHandler) Result(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFor(w, r, h.logger, h.authz, security.PermReportAnalysis)
	if !ok {
		return
	}
	var req AnalysisResultRequest
	if !decode(w, r, h.logger, &req, false) {
		return
	}
	a, err := h.analyses.Report(r.Context(), actor, r.PathValue("id"), req.toResult())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, a)
}
