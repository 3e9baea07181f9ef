package memory

import (
	"context"
	"sort"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type steps struct{ v view }

func (r steps) Create(_ context.Context, s *domain.Step) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.suggestions[s.SuggestionID]; !ok {
			return domain.ErrNotFound
		}
		st.steps[s.ID] = *s
		st.stamp(s.ID)
		return nil
	})
}

func (r steps) GetByID(_ context.Context, id string) (*domain.Step, error) {
	var out *domain.Step
	err := r.v.do(func(st *state) error {
		s, ok := st.steps[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r steps) Update(_ context.Context, s *domain.Step) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.steps[s.ID]; !ok {
			return domain.ErrNotFound
		}
		st.steps[s.ID] = *s
		return nil
	})
}

func (r steps) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.steps[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.steps, id)
		// Comments anchored to the step fall back to general discussion.
		for k, c := range st.comments {
			if c.Scope.Kind == domain.ScopeStep && c.Scope.StepID == id {
				c.Scope = domain.GeneralComment()
				st.comments[k] = c
			}
		}
		return nil
	})
}

func (r steps) ListBySuggestion(_ context.Context, suggestionID string) ([]*domain.Step, error) {
	var out []*domain.Step
	err := r.v.do(func(st *state) error {
		for _, s := range st.steps {
			if s.SuggestionID == suggestionID {
				s := s
				out = append(out, &s)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Position != out[j].Position {
				return out[i].Position < out[j].Position
			}
			return st.seq[out[i].ID] < st.seq[out[j].ID]
		})
		return nil
	})
	return out, err
}

func (r steps) MaxPosition(_ context.Context, suggestionID string) (int, error) {
	top := -1
	err := r.v.do(func(st *state) error {
		for _, s := range st.steps {
			if s.SuggestionID == suggestionID && s.Position > top {
				top = s.Position
			}
		}
		return nil
	})
	return top, err
}
