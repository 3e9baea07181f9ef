package service

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
)

// CreditService exposes balances and admin grants
type CreditService struct {
	uow    domain.UnitOfWork
	audit  *audit.Logger
	logger *slog.Logger
}

// NewCreditService creates a new credit service
func NewCreditService(uow domain.UnitOfWork, auditLog *audit.Logger, logger *slog.Logger) *CreditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreditService{uow: uow, audit: auditLog, logger: logger}
}

// Balance returns the actor's balance; unknown users have zero credits
func (s *CreditService) Balance(ctx context.Context, actor domain.Actor) (int, error) {
	bal, err := s.uow.Credits().Balance(ctx, actor.UserID)
	if isNotFound(err) {
		return 0, nil
	}
	return bal, err
}

// Grant adds credits to userID. Only admins may grant.
func (s *CreditService) Grant(ctx context.Context, actor domain.Actor, userID string, amount int) (int, error) {
	if !actor.Role.Elevated() {
		s.audit.LogDenied(ctx, actor, "grant_credits requires admin")
		return 0, domain.ErrForbidden
	}
	if userID == "" {
		return 0, domain.Validationf("user id is required")
	}
	if amount <= 0 {
		return 0, domain.Validationf("amount must be positive")
	}

	var balance int
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if err := r.Credits().Ensure(ctx, userID, ""); err != nil {
			return err
		}
		var err error
		balance, err = r.Credits().Credit(ctx, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.ObserveCredits("grant", amount)
	s.audit.LogCreditGrant(ctx, actor, userID, amount, balance)
	s.logger.Info("credits granted",
		slog.String("user_id", userID),
		slog.Int("amount", amount),
		slog.Int("balance", balance),
	)
	return balance, nil
}
