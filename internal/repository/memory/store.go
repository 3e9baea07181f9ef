// Package memory is an in-process implementation of domain.UnitOfWork.
// A single mutex serialises every operation; WithinTx works on a copy of the
// state and swaps it in only when fn succeeds.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type state struct {
	users       map[string]domain.User
	analyses    map[string]domain.Analysis
	suggestions map[string]domain.Suggestion
	steps       map[string]domain.Step
	tasks       map[string]domain.Task
	comments    map[string]domain.Comment
	seq         map[string]int64
	next        int64
}

func newState() *state {
	return &state{
		users:       map[string]domain.User{},
		analyses:    map[string]domain.Analysis{},
		suggestions: map[string]domain.Suggestion{},
		steps:       map[string]domain.Step{},
		tasks:       map[string]domain.Task{},
		comments:    map[string]domain.Comment{},
		seq:         map[string]int64{},
	}
}

func (st *state) clone() *state {
	return &state{
		users:       maps.Clone(st.users),
		analyses:    maps.Clone(st.analyses),
		suggestions: maps.Clone(st.suggestions),
		steps:       maps.Clone(st.steps),
		tasks:       maps.Clone(st.tasks),
		comments:    maps.Clone(st.comments),
		seq:         maps.Clone(st.seq),
		next:        st.next,
	}
}

// stamp records insertion order for id.
func (st *state) stamp(id string) {
	st.next++
	st.seq[id] = st.next
}

// Store is the in-memory UnitOfWork.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

type repos struct{ v view }

func (r repos) Credits() domain.CreditLedger             { return credits{r.v} }
func (r repos) Analyses() domain.AnalysisRepository      { return analyses{r.v} }
func (r repos) Suggestions() domain.SuggestionRepository { return suggestions{r.v} }
func (r repos) Steps() domain.StepRepository             { return steps{r.v} }
func (r repos) Tasks() domain.TaskRepository             { return tasks{r.v} }
func (r repos) Comments() domain.CommentRepository       { return comments{r.v} }

func (s *Store) root() repos { return repos{view{store: s}} }

func (s *Store) Credits() domain.CreditLedger             { return s.root().Credits() }
func (s *Store) Analyses() domain.AnalysisRepository      { return s.root().Analyses() }
func (s *Store) Suggestions() domain.SuggestionRepository { return s.root().Suggestions() }
func (s *Store) Steps() domain.StepRepository             { return s.root().Steps() }
func (s *Store) Tasks() domain.TaskRepository             { return s.root().Tasks() }
func (s *Store) Comments() domain.CommentRepository       { return s.root().Comments() }

// WithinTx runs fn with exclusive access to a copy of the state.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, repos{view{store: s, tx: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// DeleteAnalysis removes an analysis record; suggestions it produced keep
// existing with the reference cleared.
func (s *Store) DeleteAnalysis(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.analyses, id)
	for k, sg := range s.st.suggestions {
		if sg.AnalysisID == id {
			sg.AnalysisID = ""
			s.st.suggestions[k] = sg
		}
	}
}
