package memory

import (
	"context"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

type credits struct{ v view }

func (c credits) Balance(_ context.Context, userID string) (int, error) {
	var bal int
	err := c.v.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return domain.ErrNotFound
		}
		bal = u.Credits
		return nil
	})
	return bal, err
}

func (c credits) Lock(ctx context.Context, userID string) (int, error) {
	return c.Balance(ctx, userID)
}

func (c credits) Debit(_ context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Validationf("debit amount must be positive")
	}
	var bal int
	err := c.v.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return domain.ErrNotFound
		}
		if u.Credits < amount {
			return domain.ErrInsufficientCredits
		}
		u.Credits -= amount
		u.UpdatedAt = time.Now()
		st.users[userID] = u
		bal = u.Credits
		return nil
	})
	return bal, err
}

func (c credits) Credit(_ context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Validationf("credit amount must be positive")
	}
	var bal int
	err := c.v.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return domain.ErrNotFound
		}
		u.Credits += amount
		u.UpdatedAt = time.Now()
		st.users[userID] = u
		bal = u.Credits
		return nil
	})
	return bal, err
}

func (c credits) Ensure(_ context.Context, userID, activeStoreID string) error {
	return c.v.do(func(st *state) error {
		if _, ok := st.users[userID]; ok {
			return nil
		}
		now := time.Now()
		st.users[userID] = domain.User{ID: userID, ActiveStoreID: activeStoreID, CreatedAt: now, UpdatedAt: now}
		return nil
	})
}
