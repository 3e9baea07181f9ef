package memory

import (
	"context"
	"sort"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type tasks struct{ v view }

func (r tasks) Create(_ context.Context, t *domain.Task) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.suggestions[t.SuggestionID]; !ok {
			return domain.ErrNotFound
		}
		st.tasks[t.ID] = *t
		st.stamp(t.ID)
		return nil
	})
}

func (r tasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	var out *domain.Task
	err := r.v.do(func(st *state) error {
		t, ok := st.tasks[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r tasks) Update(_ context.Context, t *domain.Task) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.tasks[t.ID]; !ok {
			return domain.ErrNotFound
		}
		st.tasks[t.ID] = *t
		return nil
	})
}

func (r tasks) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.tasks[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.tasks, id)
		return nil
	})
}

func (r tasks) ListBySuggestion(_ context.Context, suggestionID string) ([]*domain.Task, error) {
	var out []*domain.Task
	err := r.v.do(func(st *state) error {
		for _, t := range st.tasks {
			if t.SuggestionID == suggestionID {
				t := t
				out = append(out, &t)
			}
		}
		sort.Slice(out, func(i, j int) bool { return st.seq[out[i].ID] < st.seq[out[j].ID] })
		return nil
	})
	return out, err
}
