package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// DashboardInvalidator drops cached impact figures for a store.
type DashboardInvalidator interface {
	Invalidate(storeID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string) {}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// loadSuggestion fetches a suggestion the actor's active store owns.
// With lock set the row stays locked for the rest of the transaction.
func loadSuggestion(ctx context.Context, r domain.Repositories, actor domain.Actor, id string, lock bool) (*domain.Suggestion, error) {
	get := r.Suggestions().GetByID
	if lock {
		get = r.Suggestions().GetForUpdate
	}
	s, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.StoreID != actor.StoreID {
		return nil, domain.ErrForbidden
	}
	return s, nil
}

func requireStore(actor domain.Actor) error {
	if actor.UserID == "" {
		return domain.ErrForbidden
	}
	if actor.StoreID == "" {
		return domain.Validationf("an active store is required")
	}
	return nil
}

// cleanText trims s and enforces 1..limit characters.
func cleanText(field, s string, limit int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.Validationf("%s is required", field)
	}
	if len([]rune(s)) > limit {
		return "", domain.Validationf("%s must be at most %d characters", field, limit)
	}
	return s, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// seedSteps creates one system step per recommended action, positioned by index.
func seedSteps(ctx context.Context, r domain.Repositories, s *domain.Suggestion, at time.Time) error {
	for i, action := range s.RecommendedAction {
		step := &domain.Step{
			ID:           newID(),
			SuggestionID: s.ID,
			Title:        action,
			Position:     i,
			IsCustom:     false,
			Status:       domain.StepPending,
			CreatedAt:    at,
		}
		if err := r.Steps().Create(ctx, step); err != nil {
			return err
		}
	}
	return nil
}
