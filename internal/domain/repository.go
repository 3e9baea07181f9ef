package domain

import "context"

// Repositories groups the stores the core operates on.
type Repositories interface {
	Credits() CreditLedger
	Analyses() AnalysisRepository
	Suggestions() SuggestionRepository
	Steps() StepRepository
	Tasks() TaskRepository
	Comments() CommentRepository
}

// UnitOfWork runs multi-row operations atomically. fn receives repositories
// bound to the transaction; any error returned rolls everything back.
type UnitOfWork interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
}
