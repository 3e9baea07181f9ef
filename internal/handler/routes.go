package handler

import (
	"net/http"
)

// Routes bundles every handler the API exposes.
type Routes struct {
	Health      *HealthHandler
	Analyses    *AnalysisHandler
	Stream      *AnalysisStreamHandler
	Credits     *CreditHandler
	Suggestions *SuggestionHandler
	Steps       *StepHandler
	Tasks       *TaskHandler
	Comments    *CommentHandler
	Impact      *ImpactHandler
	Metrics     http.Handler
}

// Register mounts the routes on mux.
func (rt Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", rt.Health.Health)
	mux.HandleFunc("GET /readyz", rt.Health.Ready)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	mux.HandleFunc("POST /api/analyses", rt.Analyses.Request)
	mux.HandleFunc("GET /api/analyses", rt.Analyses.List)
	mux.HandleFunc("GET /api/analyses/current", rt.Analyses.Current)
	mux.HandleFunc("GET /api/analyses/admission", rt.Analyses.Admission)
	mux.HandleFunc("GET /api/analyses/{id}", rt.Analyses.Get)
	mux.Handle("GET /ws/analyses/current", rt.Stream)
	mux.HandleFunc("POST /internal/analyses/{id}/processing", rt.Analyses.Processing)
	mux.HandleFunc("POST /internal/analyses/{id}/result", rt.Analyses.Result)

	mux.HandleFunc("GET /api/credits", rt.Credits.Balance)
	mux.HandleFunc("POST /api/admin/users/{id}/credits", rt.Credits.Grant)

	mux.HandleFunc("GET /api/suggestions", rt.Suggestions.List)
	mux.HandleFunc("POST /api/suggestions", rt.Suggestions.Create)
	mux.HandleFunc("GET /api/suggestions/{id}", rt.Suggestions.Get)
	mux.HandleFunc("PATCH /api/suggestions/{id}/status", rt.Suggestions.UpdateStatus)
	mux.HandleFunc("POST /api/suggestions/{id}/accept", rt.Suggestions.Accept)
	mux.HandleFunc("POST /api/suggestions/{id}/reject", rt.Suggestions.Reject)
	mux.HandleFunc("PATCH /api/suggestions/{id}/feedback", rt.Suggestions.Feedback)

	mux.HandleFunc("GET /api/suggestions/{id}/steps", rt.Steps.List)
	mux.HandleFunc("POST /api/suggestions/{id}/steps", rt.Steps.Add)
	mux.HandleFunc("POST /api/suggestions/{id}/steps/{stepID}/toggle", rt.Steps.Toggle)
	mux.HandleFunc("DELETE /api/suggestions/{id}/steps/{stepID}", rt.Steps.Delete)

	mux.HandleFunc("GET /api/suggestions/{id}/tasks", rt.Tasks.List)
	mux.HandleFunc("POST /api/suggestions/{id}/tasks", rt.Tasks.Create)
	mux.HandleFunc("PATCH /api/suggestions/{id}/tasks/{taskID}", rt.Tasks.Update)
	mux.HandleFunc("POST /api/suggestions/{id}/tasks/{taskID}/start", rt.Tasks.Start)
	mux.HandleFunc("POST /api/suggestions/{id}/tasks/{taskID}/complete", rt.Tasks.Complete)
	mux.HandleFunc("POST /api/suggestions/{id}/tasks/{taskID}/uncomplete", rt.Tasks.Uncomplete)
	mux.HandleFunc("DELETE /api/suggestions/{id}/tasks/{taskID}", rt.Tasks.Delete)

	mux.HandleFunc("GET /api/suggestions/{id}/comments", rt.Comments.List)
	mux.HandleFunc("POST /api/suggestions/{id}/comments", rt.Comments.Add)
	mux.HandleFunc("DELETE /api/suggestions/{id}/comments/{commentID}", rt.Comments.Delete)

	mux.HandleFunc("GET /api/impact/dashboard", rt.Impact.Dashboard)
}
