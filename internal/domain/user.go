package domain

import (
	"context"
	"time"
)

// Role is the coarse identity role supplied by the auth provider.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
	RoleService Role = "service" // job processor callbacks
)

// Elevated reports whether the role may moderate content authored by others.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleService:
		return true
	}
	return false
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID  string
	StoreID string // active store
	Role    Role
}

// User is the external account entity. Only the credit balance is owned here.
type User struct {
	ID            string    `json:"id"`
	Credits       int       `json:"credits"`
	ActiveStoreID string    `json:"active_store_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreditLedger holds per-user balances. Debit never drives a balance below zero.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	// Lock reads the balance and holds the user's row until the surrounding
	// transaction ends. Outside a transaction it behaves like Balance.
	Lock(ctx context.Context, userID string) (int, error)
	Debit(ctx context.Context, userID string, amount int) (int, error)
	Credit(ctx context.Context, userID string, amount int) (int, error)
	// Ensure creates the user row with a zero balance if it does not exist.
	Ensure(ctx context.Context, userID, activeStoreID string) error
}
