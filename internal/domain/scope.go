package domain

// ScopeKind distinguishes general entries from step-scoped ones.
type ScopeKind int

const (
	ScopeGeneral ScopeKind = iota
	ScopeStep
)

// TaskScope binds a task to an ordinal of Suggestion.RecommendedAction.
// It is not a reference to a Step row.
type TaskScope struct {
	Kind      ScopeKind
	StepIndex int
}

// GeneralTask is the scope of a task not tied to any action step.
func GeneralTask() TaskScope { return TaskScope{Kind: ScopeGeneral} }

// LinkedTask scopes a task to the recommended action at index i.
func LinkedTask(i int) TaskScope { return TaskScope{Kind: ScopeStep, StepIndex: i} }

// TaskScopeFrom converts the nullable column form.
func TaskScopeFrom(idx *int) TaskScope {
	if idx == nil {
		return GeneralTask()
	}
	return LinkedTask(*idx)
}

// Index returns the nullable column form.
func (s TaskScope) Index() *int {
	if s.Kind == ScopeGeneral {
		return nil
	}
	i := s.StepIndex
	return &i
}

// CommentScope binds a comment to a Step row of the same suggestion.
type CommentScope struct {
	Kind   ScopeKind
	StepID string
}

// GeneralComment is the scope of a suggestion-level comment.
func GeneralComment() CommentScope { return CommentScope{Kind: ScopeGeneral} }

// StepComment scopes a comment to a step row.
func StepComment(stepID string) CommentScope { return CommentScope{Kind: ScopeStep, StepID: stepID} }

// CommentScopeFrom converts the nullable column form.
func CommentScopeFrom(stepID *string) CommentScope {
	if stepID == nil || *stepID == "" {
		return GeneralComment()
	}
	return StepComment(*stepID)
}

// Ref returns the nullable column form.
func (s CommentScope) Ref() *string {
	if s.Kind == ScopeGeneral {
		return nil
	}
	id := s.StepID
	return &id
}
