package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AnalysisStatus is the lifecycle state of an analysis run.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

var analysisTransitions = map[AnalysisStatus][]AnalysisStatus{
	AnalysisPending:    {AnalysisProcessing, AnalysisCompleted, AnalysisFailed},
	AnalysisProcessing: {AnalysisCompleted, AnalysisFailed},
}

// CanTransition reports whether the job processor may move s to next.
func (s AnalysisStatus) CanTransition(next AnalysisStatus) bool {
	return allowed(analysisTransitions[s], next)
}

// InFlight reports whether s blocks admission of another analysis.
func (s AnalysisStatus) InFlight() bool {
	return s == AnalysisPending || s == AnalysisProcessing
}

// Terminal reports whether no further transition is possible.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// ProposedSuggestion is one recommendation as produced by the AI provider.
type ProposedSuggestion struct {
	Category          string   `json:"category"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"`
	RecommendedAction []string `json:"recommended_action"`
}

// Analysis is one AI analysis run for a store over a period.
type Analysis struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	StoreID       string               `json:"store_id"`
	Status        AnalysisStatus       `json:"status"`
	PeriodStart   time.Time            `json:"period_start"`
	PeriodEnd     time.Time            `json:"period_end"`
	Summary       string               `json:"summary"`
	Suggestions   []ProposedSuggestion `json:"suggestions"`
	Alerts        json.RawMessage      `json:"alerts"`
	Opportunities json.RawMessage      `json:"opportunities"`
	CreditsUsed   int                  `json:"credits_used"`
	FailureReason string               `json:"failure_reason,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
}

// AnalysisResult is the payload the job processor reports back.
type AnalysisResult struct {
	Status        AnalysisStatus       `json:"status"`
	Summary       string               `json:"summary"`
	Suggestions   []ProposedSuggestion `json:"suggestions"`
	Alerts        json.RawMessage      `json:"alerts"`
	Opportunities json.RawMessage      `json:"opportunities"`
	CreditsUsed   *int                 `json:"credits_used"`
	Reason        string               `json:"reason"`
}

// AnalysisRepository persists analyses. Create must reject a second in-flight
// analysis for the same user with ErrAlreadyInFlight at the storage layer.
type AnalysisRepository interface {
	Create(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id string) (*Analysis, error)
	// GetForUpdate is GetByID holding the row until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Analysis, error)
	FindInFlight(ctx context.Context, userID string) (*Analysis, error)
	Latest(ctx context.Context, userID string) (*Analysis, error)
	Update(ctx context.Context, a *Analysis) error
	ListByStore(ctx context.Context, storeID string, limit int) ([]*Analysis, error)
	ListStale(ctx context.Context, createdBefore time.Time) ([]*Analysis, error)
}

func allowed[S comparable](edges []S, next S) bool {
	for _, e := range edges {
		if e == next {
			return true
		}
	}
	return false
}
