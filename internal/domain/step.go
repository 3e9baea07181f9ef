package domain

import (
	"context"
	"time"
)

// StepStatus is the checklist state of a step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
)

// Toggled returns the opposite checklist state.
func (s StepStatus) Toggled() StepStatus {
	if s == StepCompleted {
		return StepPending
	}
	return StepCompleted
}

// Step is an ordered checklist entry under a suggestion. System steps are
// seeded from RecommendedAction; only custom steps may be deleted.
type Step struct {
	ID           string     `json:"id"`
	SuggestionID string     `json:"suggestion_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Position     int        `json:"position"`
	IsCustom     bool       `json:"is_custom"`
	Status       StepStatus `json:"status"`
	CompletedAt  *time.Time `json:"completed_at"`
	CompletedBy  *string    `json:"completed_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Toggle flips the step and stamps or clears the completion metadata.
func (s *Step) Toggle(userID string, at time.Time) {
	s.Status = s.Status.Toggled()
	if s.Status == StepCompleted {
		s.CompletedAt = &at
		s.CompletedBy = &userID
		return
	}
	s.CompletedAt = nil
	s.CompletedBy = nil
}

// Progress returns the completed share of steps as a whole percentage.
func Progress(steps []*Step) int {
	if len(steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range steps {
		if s.Status == StepCompleted {
			done++
		}
	}
	return (done*100 + len(steps)/2) / len(steps)
}

// StepRepository persists steps. ListBySuggestion orders by position, then
// insertion order.
type StepRepository interface {
	Create(ctx context.Context, s *Step) error
	GetByID(ctx context.Context, id string) (*Step, error)
	Update(ctx context.Context, s *Step) error
	Delete(ctx context.Context, id string) error
	ListBySuggestion(ctx context.Context, suggestionID string) ([]*Step, error)
	MaxPosition(ctx context.Context, suggestionID string) (int, error)
}
