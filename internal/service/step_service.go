package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
)

// AddStepInput describes a user-added checklist step.
// A nil Position appends after the current last step.
type AddStepInput struct {
	Title       string
	Description string
	Position    *int
}

// StepService manages a suggestion's checklist
type StepService struct {
	uow    domain.UnitOfWork
	audit  *audit.Logger
	logger *slog.Logger
	now    func() time.Time
}

// NewStepService creates a new step service
func NewStepService(uow domain.UnitOfWork, auditLog *audit.Logger, logger *slog.Logger) *StepService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepService{uow: uow, audit: auditLog, logger: logger, now: utcNow}
}

// ListSteps returns the ordered checklist and its completion percentage.
func (s *StepService) ListSteps(ctx context.Context, actor domain.Actor, suggestionID string) ([]*domain.Step, int, error) {
	if _, err := loadSuggestion(ctx, s.uow, actor, suggestionID, false); err != nil {
		return nil, 0, err
	}
	steps, err := s.uow.Steps().ListBySuggestion(ctx, suggestionID)
	if err != nil {
		return nil, 0, err
	}
	return steps, domain.Progress(steps), nil
}

// AddStep appends a custom step.
func (s *StepService) AddStep(ctx context.Context, actor domain.Actor, suggestionID string, in AddStepInput) (*domain.Step, error) {
	title, err := cleanText("title", in.Title, 255)
	if err != nil {
		return nil, err
	}
	if in.Position != nil && *in.Position < 0 {
		return nil, domain.Validationf("position must not be negative")
	}

	var step *domain.Step
	err = s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if _, err := loadSuggestion(ctx, r, actor, suggestionID, true); err != nil {
			return err
		}

		var pos int
		if in.Position != nil {
			pos = *in.Position
		} else {
			top, err := r.Steps().MaxPosition(ctx, suggestionID)
			if err != nil {
				return err
			}
			pos = top + 1
		}

		step = &domain.Step{
			ID:           newID(),
			SuggestionID: suggestionID,
			Title:        title,
			Description:  in.Description,
			Position:     pos,
			IsCustom:     true,
			Status:       domain.StepPending,
			CreatedAt:    s.now(),
		}
		return r.Steps().Create(ctx, step)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogMutation(ctx, actor, "add_step", "suggestion_step", step.ID)
	return step, nil
}

// ToggleStep flips the step between pending and completed. Completion is
// stamped with the acting user; reopening clears the stamp.
func (s *StepService) ToggleStep(ctx context.Context, actor domain.Actor, suggestionID, stepID string) (*domain.Step, error) {
	var step *domain.Step
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		var err error
		if step, err = s.stepOf(ctx, r, actor, suggestionID, stepID); err != nil {
			return err
		}
		step.Toggle(actor.UserID, s.now())
		return r.Steps().Update(ctx, step)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogStatusChange(ctx, actor, "suggestion_step", stepID, string(step.Status.Toggled()), string(step.Status))
	return step, nil
}

// DeleteStep removes a custom step. System steps cannot be deleted.
func (s *StepService) DeleteStep(ctx context.Context, actor domain.Actor, suggestionID, stepID string) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		step, err := s.stepOf(ctx, r, actor, suggestionID, stepID)
		if err != nil {
			return err
		}
		if !step.IsCustom {
			return domain.ErrCannotDeleteSystemStep
		}
		return r.Steps().Delete(ctx, stepID)
	})
	if err != nil {
		return err
	}

	s.audit.LogMutation(ctx, actor, "delete_step", "suggestion_step", stepID)
	return nil
}

// stepOf locks the suggestion and loads one of its steps.
func (s *StepService) stepOf(ctx context.Context, r domain.Repositories, actor domain.Actor, suggestionID, stepID string) (*domain.Step, error) {
	if _, err := loadSuggestion(ctx, r, actor, suggestionID, true); err != nil {
		return nil, err
	}
	step, err := r.Steps().GetByID(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.SuggestionID != suggestionID {
		return nil, domain.ErrNotFound
	}
	return step, nil
}
