package domain

import (
	"context"
	"time"
)

// Comment is an immutable discussion entry on a suggestion or one of its steps.
type Comment struct {
	ID           string
	SuggestionID string
	Scope        CommentScope
	UserID       string
	Content      string
	CreatedAt    time.Time
}

// CanDelete reports whether actor may remove the comment.
func (c *Comment) CanDelete(actor Actor) bool {
	return c.UserID == actor.UserID || actor.Role.Elevated()
}

// CommentRepository persists comments. There is deliberately no update.
type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id string) (*Comment, error)
	Delete(ctx context.Context, id string) error
	ListBySuggestion(ctx context.Context, suggestionID string) ([]*Comment, error)
}
