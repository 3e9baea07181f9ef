package memory

import (
	"context"
	"sort"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type comments struct{ v view }

func (r comments) Create(_ context.Context, c *domain.Comment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.suggestions[c.SuggestionID]; !ok {
			return domain.ErrNotFound
		}
		st.comments[c.ID] = *c
		st.stamp(c.ID)
		return nil
	})
}

func (r comments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	var out *domain.Comment
	err := r.v.do(func(st *state) error {
		c, ok := st.comments[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r comments) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.comments[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.comments, id)
		return nil
	})
}

func (r comments) ListBySuggestion(_ context.Context, suggestionID string) ([]*domain.Comment, error) {
	var out []*domain.Comment
	err := r.v.do(func(st *state) error {
		for _, c := range st.comments {
			if c.SuggestionID == suggestionID {
				c := c
				out = append(out, &c)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return st.seq[out[i].ID] < st.seq[out[j].ID]
		})
		return nil
	})
	return out, err
}
