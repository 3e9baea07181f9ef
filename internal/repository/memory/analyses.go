package memory

import (
	"context"
	"sort"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type analyses struct{ v view }

func (r analyses) Create(_ context.Context, a *domain.Analysis) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.analyses[a.ID]; ok {
			return domain.Validationf("analysis %s already exists", a.ID)
		}
		if a.Status.InFlight() {
			for _, other := range st.analyses {
				if other.UserID == a.UserID && other.Status.InFlight() {
					return domain.ErrAlreadyInFlight
				}
			}
		}
		st.analyses[a.ID] = *a
		st.stamp(a.ID)
		return nil
	})
}

func (r analyses) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	var out *domain.Analysis
	err := r.v.do(func(st *state) error {
		a, ok := st.analyses[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r analyses) GetForUpdate(ctx context.Context, id string) (*domain.Analysis, error) {
	return r.GetByID(ctx, id)
}

func (r analyses) FindInFlight(_ context.Context, userID string) (*domain.Analysis, error) {
	var out *domain.Analysis
	err := r.v.do(func(st *state) error {
		for _, a := range st.analyses {
			if a.UserID == userID && a.Status.InFlight() {
				a := a
				out = &a
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r analyses) Latest(_ context.Context, userID string) (*domain.Analysis, error) {
	var out *domain.Analysis
	err := r.v.do(func(st *state) error {
		for _, a := range sortedAnalyses(st, func(a domain.Analysis) bool { return a.UserID == userID }) {
			a := a
			out = &a
			return nil
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r analyses) Update(_ context.Context, a *domain.Analysis) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.analyses[a.ID]; !ok {
			return domain.ErrNotFound
		}
		st.analyses[a.ID] = *a
		return nil
	})
}

func (r analyses) ListByStore(_ context.Context, storeID string, limit int) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	err := r.v.do(func(st *state) error {
		for _, a := range sortedAnalyses(st, func(a domain.Analysis) bool { return a.StoreID == storeID }) {
			if limit > 0 && len(out) >= limit {
				break
			}
			a := a
			out = append(out, &a)
		}
		return nil
	})
	return out, err
}

func (r analyses) ListStale(_ context.Context, createdBefore time.Time) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	err := r.v.do(func(st *state) error {
		for _, a := range sortedAnalyses(st, func(a domain.Analysis) bool {
			return a.Status.InFlight() && a.CreatedAt.Before(createdBefore)
		}) {
			a := a
			out = append(out, &a)
		}
		return nil
	})
	return out, err
}

// sortedAnalyses returns matches newest first.
func sortedAnalyses(st *state, match func(domain.Analysis) bool) []domain.Analysis {
	var list []domain.Analysis
	for _, a := range st.analyses {
		if match(a) {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return st.seq[list[i].ID] > st.seq[list[j].ID]
	})
	return list
}
