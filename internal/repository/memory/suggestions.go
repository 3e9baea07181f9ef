package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type suggestions struct{ v view }

func (r suggestions) Create(_ context.Context, s *domain.Suggestion) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.suggestions[s.ID]; ok {
			return domain.Validationf("suggestion %s already exists", s.ID)
		}
		cp := *s
		cp.RecommendedAction = slices.Clone(s.RecommendedAction)
		st.suggestions[s.ID] = cp
		st.stamp(s.ID)
		return nil
	})
}

func (r suggestions) GetByID(_ context.Context, id string) (*domain.Suggestion, error) {
	var out *domain.Suggestion
	err := r.v.do(func(st *state) error {
		s, ok := st.suggestions[id]
		if !ok {
			return domain.ErrNotFound
		}
		s.RecommendedAction = slices.Clone(s.RecommendedAction)
		out = &s
		return nil
	})
	return out, err
}

func (r suggestions) GetForUpdate(ctx context.Context, id string) (*domain.Suggestion, error) {
	return r.GetByID(ctx, id)
}

func (r suggestions) Update(_ context.Context, s *domain.Suggestion) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.suggestions[s.ID]; !ok {
			return domain.ErrNotFound
		}
		cp := *s
		cp.RecommendedAction = slices.Clone(s.RecommendedAction)
		st.suggestions[s.ID] = cp
		return nil
	})
}

func (r suggestions) ListByStore(_ context.Context, storeID string, f domain.SuggestionFilter) ([]*domain.Suggestion, error) {
	var out []*domain.Suggestion
	err := r.v.do(func(st *state) error {
		for _, s := range st.suggestions {
			if s.StoreID != storeID {
				continue
			}
			if f.Status != "" && s.Status != f.Status {
				continue
			}
			if f.Category != "" && s.Category != f.Category {
				continue
			}
			s := s
			s.RecommendedAction = slices.Clone(s.RecommendedAction)
			out = append(out, &s)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return st.seq[out[i].ID] < st.seq[out[j].ID]
		})
		return nil
	})
	return out, err
}
