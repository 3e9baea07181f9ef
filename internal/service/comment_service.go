package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
)

const maxCommentLength = 5000

// CommentFilter narrows ListComments. The zero value lists every comment.
type CommentFilter struct {
	GeneralOnly bool
	StepID      string
}

// CommentService manages a suggestion's discussion thread. Comments are
// never edited.
type CommentService struct {
	uow    domain.UnitOfWork
	audit  *audit.Logger
	logger *slog.Logger
	now    func() time.Time
}

// NewCommentService creates a new comment service
func NewCommentService(uow domain.UnitOfWork, auditLog *audit.Logger, logger *slog.Logger) *CommentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{uow: uow, audit: auditLog, logger: logger, now: utcNow}
}

// AddComment posts a comment, optionally anchored to one of the
// suggestion's steps.
func (s *CommentService) AddComment(ctx context.Context, actor domain.Actor, suggestionID, content string, stepID *string) (*domain.Comment, error) {
	body, err := cleanText("content", content, maxCommentLength)
	if err != nil {
		return nil, err
	}

	var c *domain.Comment
	err = s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if _, err := loadSuggestion(ctx, r, actor, suggestionID, true); err != nil {
			return err
		}

		scope := domain.CommentScopeFrom(stepID)
		if scope.Kind == domain.ScopeStep {
			step, err := r.Steps().GetByID(ctx, scope.StepID)
			if isNotFound(err) || (err == nil && step.SuggestionID != suggestionID) {
				return domain.ErrInvalidStepReference
			}
			if err != nil {
				return err
			}
		}

		c = &domain.Comment{
			ID:           newID(),
			SuggestionID: suggestionID,
			Scope:        scope,
			UserID:       actor.UserID,
			Content:      body,
			CreatedAt:    s.now(),
		}
		return r.Comments().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogMutation(ctx, actor, "add_comment", "suggestion_comment", c.ID)
	return c, nil
}

// DeleteComment removes a comment if the actor wrote it or holds an elevated role.
func (s *CommentService) DeleteComment(ctx context.Context, actor domain.Actor, suggestionID, commentID string) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if _, err := loadSuggestion(ctx, r, actor, suggestionID, true); err != nil {
			return err
		}
		c, err := r.Comments().GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if c.SuggestionID != suggestionID {
			return domain.ErrNotFound
		}
		if !c.CanDelete(actor) {
			return domain.ErrForbidden
		}
		return r.Comments().Delete(ctx, commentID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.audit.LogDenied(ctx, actor, "delete comment "+commentID)
		}
		return err
	}

	s.audit.LogMutation(ctx, actor, "delete_comment", "suggestion_comment", commentID)
	return nil
}

// ListComments returns the thread oldest first.
func (s *CommentService) ListComments(ctx context.Context, actor domain.Actor, suggestionID string, f CommentFilter) ([]*domain.Comment, error) {
	if _, err := loadSuggestion(ctx, s.uow, actor, suggestionID, false); err != nil {
		return nil, err
	}
	all, err := s.uow.Comments().ListBySuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if !f.GeneralOnly && f.StepID == "" {
		return all, nil
	}

	out := all[:0]
	for _, c := range all {
		switch {
		case f.GeneralOnly && c.Scope.Kind == domain.ScopeGeneral:
			out = append(out, c)
		case f.StepID != "" && c.Scope.Kind == domain.ScopeStep && c.Scope.StepID == f.StepID:
			out = append(out, c)
		}
	}
	return out, nil
}
