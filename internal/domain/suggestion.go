package domain

import (
	"context"
	"time"
)

// SuggestionStatus is the tracking state of a suggestion.
type SuggestionStatus string

const (
	SuggestionPending    SuggestionStatus = "pending"
	SuggestionInProgress SuggestionStatus = "in_progress"
	SuggestionCompleted  SuggestionStatus = "completed"
	SuggestionIgnored    SuggestionStatus = "ignored"
)

var suggestionTransitions = map[SuggestionStatus][]SuggestionStatus{
	SuggestionPending:    {SuggestionInProgress, SuggestionCompleted, SuggestionIgnored},
	SuggestionInProgress: {SuggestionCompleted, SuggestionIgnored},
	SuggestionCompleted:  {SuggestionInProgress},
	SuggestionIgnored:    {SuggestionPending},
}

// SuggestionStatuses lists every status in display order.
var SuggestionStatuses = []SuggestionStatus{
	SuggestionPending, SuggestionInProgress, SuggestionCompleted, SuggestionIgnored,
}

// Valid reports whether s is a known status.
func (s SuggestionStatus) Valid() bool {
	_, ok := suggestionTransitions[s]
	return ok
}

// CanTransition reports whether (s, next) is an allowed edge.
func (s SuggestionStatus) CanTransition(next SuggestionStatus) bool {
	return allowed(suggestionTransitions[s], next)
}

// Suggestion is a tracked recommendation. It outlives the analysis that
// produced it; AnalysisID is empty for manual suggestions or once the
// analysis has been removed.
type Suggestion struct {
	ID                string           `json:"id"`
	StoreID           string           `json:"store_id"`
	AnalysisID        string           `json:"analysis_id,omitempty"`
	Category          string           `json:"category"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Priority          string           `json:"priority"`
	RecommendedAction []string         `json:"recommended_action"`
	Status            SuggestionStatus `json:"status"`
	WasSuccessful     *bool            `json:"was_successful"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// HasStepIndex reports whether i addresses an entry of RecommendedAction.
func (s *Suggestion) HasStepIndex(i int) bool {
	return i >= 0 && i < len(s.RecommendedAction)
}

// SuggestionFilter narrows a store listing. Zero values match everything.
type SuggestionFilter struct {
	Status   SuggestionStatus
	Category string
}

// SuggestionRepository persists suggestions.
type SuggestionRepository interface {
	Create(ctx context.Context, s *Suggestion) error
	GetByID(ctx context.Context, id string) (*Suggestion, error)
	// GetForUpdate is GetByID holding the row until the transaction ends.
	// Mutations of steps, tasks and comments lock their suggestion first.
	GetForUpdate(ctx context.Context, id string) (*Suggestion, error)
	Update(ctx context.Context, s *Suggestion) error
	ListByStore(ctx context.Context, storeID string, filter SuggestionFilter) ([]*Suggestion, error)
}
