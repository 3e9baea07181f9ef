package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
)

// CreateSuggestionInput describes a manually entered suggestion.
type CreateSuggestionInput struct {
	Category          string
	Title             string
	Description       string
	Priority          string
	RecommendedAction []string
}

// SuggestionDetail is a suggestion with its checklist, tasks and thread.
type SuggestionDetail struct {
	Suggestion *domain.Suggestion
	Steps      []*domain.Step
	Tasks      []*domain.Task
	Comments   []*domain.Comment
	Progress   int
}

// SuggestionService drives the suggestion status machine and feedback.
type SuggestionService struct {
	uow        domain.UnitOfWork
	dashboards DashboardInvalidator
	audit      *audit.Logger
	logger     *slog.Logger
	now        func() time.Time
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(uow domain.UnitOfWork, dashboards DashboardInvalidator, auditLog *audit.Logger, logger *slog.Logger) *SuggestionService {
	if logger == nil {
		logger = slog.Default()
	}
	if dashboards == nil {
		dashboards = noopInvalidator{}
	}
	return &SuggestionService{uow: uow, dashboards: dashboards, audit: auditLog, logger: logger, now: utcNow}
}

// Create records a manual suggestion in pending status. Its recommended
// actions become system steps, as for analysis generated suggestions.
func (s *SuggestionService) Create(ctx context.Context, actor domain.Actor, in CreateSuggestionInput) (*domain.Suggestion, error) {
	if err := requireStore(actor); err != nil {
		return nil, err
	}
	title, err := cleanText("title", in.Title, 255)
	if err != nil {
		return nil, err
	}
	actions := make([]string, 0, len(in.RecommendedAction))
	for i, raw := range in.RecommendedAction {
		action, err := cleanText("recommended_action", raw, 1000)
		if err != nil {
			return nil, domain.Validationf("recommended_action[%d] must be 1 to 1000 characters", i)
		}
		actions = append(actions, action)
	}

	now := s.now()
	sg := &domain.Suggestion{
		ID:                newID(),
		StoreID:           actor.StoreID,
		Category:          in.Category,
		Title:             title,
		Description:       in.Description,
		Priority:          in.Priority,
		RecommendedAction: actions,
		Status:            domain.SuggestionPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if err := r.Suggestions().Create(ctx, sg); err != nil {
			return err
		}
		return seedSteps(ctx, r, sg, now)
	})
	if err != nil {
		return nil, err
	}

	s.dashboards.Invalidate(actor.StoreID)
	s.audit.LogMutation(ctx, actor, "create", "suggestion", sg.ID)
	return sg, nil
}

// Get returns the suggestion with its steps, tasks, comments and progress.
func (s *SuggestionService) Get(ctx context.Context, actor domain.Actor, id string) (*SuggestionDetail, error) {
	sg, err := loadSuggestion(ctx, s.uow, actor, id, false)
	if err != nil {
		return nil, err
	}
	steps, err := s.uow.Steps().ListBySuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.uow.Tasks().ListBySuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.uow.Comments().ListBySuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SuggestionDetail{
		Suggestion: sg,
		Steps:      steps,
		Tasks:      tasks,
		Comments:   comments,
		Progress:   domain.Progress(steps),
	}, nil
}

// List returns the actor's store suggestions, optionally filtered.
func (s *SuggestionService) List(ctx context.Context, actor domain.Actor, filter domain.SuggestionFilter) ([]*domain.Suggestion, error) {
	if err := requireStore(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Validationf("unknown status %q", filter.Status)
	}
	return s.uow.Suggestions().ListByStore(ctx, actor.StoreID, filter)
}

// UpdateStatus moves the suggestion along one allowed edge.
func (s *SuggestionService) UpdateStatus(ctx context.Context, actor domain.Actor, id string, next domain.SuggestionStatus) (*domain.Suggestion, error) {
	if !next.Valid() {
		return nil, domain.Validationf("unknown status %q", next)
	}

	var out *domain.Suggestion
	var from domain.SuggestionStatus
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		sg, err := loadSuggestion(ctx, r, actor, id, true)
		if err != nil {
			return err
		}
		from = sg.Status
		if !sg.Status.CanTransition(next) {
			return &domain.TransitionError{Entity: "suggestion", From: string(sg.Status), To: string(next)}
		}
		sg.Status = next
		sg.UpdatedAt = s.now()
		out = sg
		return r.Suggestions().Update(ctx, sg)
	})
	if err != nil {
		return nil, err
	}

	s.dashboards.Invalidate(out.StoreID)
	metrics.ObserveSuggestionTransition(string(from), string(next))
	s.audit.LogStatusChange(ctx, actor, "suggestion", id, string(from), string(next))
	return out, nil
}

// Accept starts tracking the suggestion.
func (s *SuggestionService) Accept(ctx context.Context, actor domain.Actor, id string) (*domain.Suggestion, error) {
	return s.UpdateStatus(ctx, actor, id, domain.SuggestionInProgress)
}

// Reject dismisses the suggestion.
func (s *SuggestionService) Reject(ctx context.Context, actor domain.Actor, id string) (*domain.Suggestion, error) {
	return s.UpdateStatus(ctx, actor, id, domain.SuggestionIgnored)
}

// SetFeedback records whether acting on the suggestion paid off. nil clears it.
// Feedback is independent of status.
func (s *SuggestionService) SetFeedback(ctx context.Context, actor domain.Actor, id string, wasSuccessful *bool) (*domain.Suggestion, error) {
	var out *domain.Suggestion
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		sg, err := loadSuggestion(ctx, r, actor, id, true)
		if err != nil {
			return err
		}
		if wasSuccessful != nil {
			v := *wasSuccessful
			sg.WasSuccessful = &v
		} else {
			sg.WasSuccessful = nil
		}
		sg.UpdatedAt = s.now()
		out = sg
		return r.Suggestions().Update(ctx, sg)
	})
	if err != nil {
		return nil, err
	}

	s.dashboards.Invalidate(out.StoreID)
	s.audit.LogMutation(ctx, actor, "set_feedback", "suggestion", id)
	return out, nil
}
