package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/infrastructure/redislock"
	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
	"github.com/aryan0dhankhar/storepulse/internal/observability/tracing"
	"github.com/aryan0dhankhar/storepulse/internal/queue"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
	"github.com/aryan0dhankhar/storepulse/pkg/config"
)

// Reasons reported by AdmissionService.Status when a request would be refused.
const (
	ReasonInFlight            = "in_flight"
	ReasonRateLimited         = "rate_limited"
	ReasonInsufficientCredits = "insufficient_credits"
)

// AdmissionStatus describes whether the actor could request an analysis now.
type AdmissionStatus struct {
	CanRequest      bool       `json:"can_request"`
	Reason          string     `json:"reason,omitempty"`
	NextAvailableAt *time.Time `json:"next_available_at,omitempty"`
	InFlightID      string     `json:"in_flight_id,omitempty"`
	Credits         int        `json:"credits"`
	Cost            int        `json:"cost"`
}

// AdmissionService admits analysis requests under the in-flight, cool-down
// and credit policy, atomically with the debit.
type AdmissionService struct {
	uow             domain.UnitOfWork
	policy          config.AdmissionPolicy
	dispatcher      queue.Dispatcher
	locker          redislock.Locker
	audit           *audit.Logger
	logger          *slog.Logger
	now             func() time.Time
	dispatchTimeout time.Duration
}

// NewAdmissionService creates an admission service. A nil locker disables
// the Redis pre-lock; a nil dispatcher only logs admitted analyses.
func NewAdmissionService(
	uow domain.UnitOfWork,
	policy config.AdmissionPolicy,
	dispatcher queue.Dispatcher,
	locker redislock.Locker,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AdmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatcher == nil {
		dispatcher = queue.LogDispatcher{Logger: logger}
	}
	if locker == nil {
		locker = redislock.Noop{}
	}
	return &AdmissionService{
		uow:             uow,
		policy:          policy,
		dispatcher:      dispatcher,
		locker:          locker,
		audit:           auditLog,
		logger:          logger,
		now:             utcNow,
		dispatchTimeout: 10 * time.Second,
	}
}

// RequestAnalysis admits a new pending analysis for the actor or explains why not.
func (s *AdmissionService) RequestAnalysis(ctx context.Context, actor domain.Actor) (*domain.Analysis, error) {
	ctx, span := tracing.Tracer().Start(ctx, "admission.RequestAnalysis",
		trace.WithAttributes(
			attribute.String("user.id", actor.UserID),
			attribute.String("store.id", actor.StoreID),
		),
	)
	defer span.End()

	start := time.Now()
	analysis, err := s.admit(ctx, actor)
	result := admissionResult(err)
	metrics.ObserveAdmission(result, time.Since(start))
	span.SetAttributes(attribute.String("admission.result", result))

	if err != nil {
		if result == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("admission failed",
				slog.String("user_id", actor.UserID),
				slog.String("error", err.Error()),
			)
		}
		s.audit.LogAnalysisRequest(ctx, actor, "", "rejected", result)
		return nil, err
	}

	s.audit.LogAnalysisRequest(ctx, actor, analysis.ID, "success", "")
	metrics.ObserveCredits("debit", analysis.CreditsUsed)
	s.logger.Info("analysis admitted",
		slog.String("analysis_id", analysis.ID),
		slog.String("user_id", actor.UserID),
		slog.String("store_id", actor.StoreID),
	)

	s.dispatch(ctx, analysis.ID)
	return analysis, nil
}

func (s *AdmissionService) admit(ctx context.Context, actor domain.Actor) (*domain.Analysis, error) {
	if err := requireStore(actor); err != nil {
		return nil, err
	}

	release, err := s.locker.Obtain(ctx, "admission:"+actor.UserID)
	switch {
	case errors.Is(err, redislock.ErrNotObtained):
		return nil, domain.ErrAlreadyInFlight
	case err != nil:
		// The transaction below still enforces every rule.
		s.logger.Warn("admission lock unavailable",
			slog.String("user_id", actor.UserID),
			slog.String("error", err.Error()),
		)
	default:
		defer release(context.WithoutCancel(ctx))
	}

	var created *domain.Analysis
	err = s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if err := r.Credits().Ensure(ctx, actor.UserID, actor.StoreID); err != nil {
			return err
		}
		balance, err := r.Credits().Lock(ctx, actor.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		if _, err := s.evaluate(ctx, r, actor.UserID, balance, now); err != nil {
			return err
		}

		if s.policy.CreditCost > 0 {
			if _, err := r.Credits().Debit(ctx, actor.UserID, s.policy.CreditCost); err != nil {
				return err
			}
		}

		created = &domain.Analysis{
			ID:          newID(),
			UserID:      actor.UserID,
			StoreID:     actor.StoreID,
			Status:      domain.AnalysisPending,
			PeriodStart: now.Add(-s.policy.Period()),
			PeriodEnd:   now,
			CreditsUsed: s.policy.CreditCost,
			CreatedAt:   now,
		}
		return r.Analyses().Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// evaluate applies the admission rules in order: in-flight, cool-down, credits.
// It returns the in-flight analysis id when that rule fires.
func (s *AdmissionService) evaluate(ctx context.Context, r domain.Repositories, userID string, balance int, now time.Time) (string, error) {
	inFlight, err := r.Analyses().FindInFlight(ctx, userID)
	if err == nil {
		return inFlight.ID, domain.ErrAlreadyInFlight
	}
	if !isNotFound(err) {
		return "", err
	}

	latest, err := r.Analyses().Latest(ctx, userID)
	switch {
	case err == nil:
		next := latest.CreatedAt.Add(s.policy.Cooldown())
		if now.Before(next) {
			return "", &domain.RateLimitedError{NextAvailableAt: next}
		}
	case !isNotFound(err):
		return "", err
	}

	if balance <= 0 || balance < s.policy.CreditCost {
		return "", domain.ErrInsufficientCredits
	}
	return "", nil
}

// Status reports what RequestAnalysis would decide right now, without side effects.
func (s *AdmissionService) Status(ctx context.Context, actor domain.Actor) (*AdmissionStatus, error) {
	if err := requireStore(actor); err != nil {
		return nil, err
	}

	balance, err := s.uow.Credits().Balance(ctx, actor.UserID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	st := &AdmissionStatus{Credits: balance, Cost: s.policy.CreditCost, CanRequest: true}
	inFlightID, err := s.evaluate(ctx, s.uow, actor.UserID, balance, s.now())
	if err == nil {
		return st, nil
	}

	st.CanRequest = false
	var rl *domain.RateLimitedError
	switch {
	case errors.Is(err, domain.ErrAlreadyInFlight):
		st.Reason = ReasonInFlight
		st.InFlightID = inFlightID
	case errors.As(err, &rl):
		st.Reason = ReasonRateLimited
		next := rl.NextAvailableAt
		st.NextAvailableAt = &next
	case errors.Is(err, domain.ErrInsufficientCredits):
		st.Reason = ReasonInsufficientCredits
	default:
		return nil, err
	}
	return st, nil
}

// Current returns the in-flight analysis if any, else the latest one, else nil.
func (s *AdmissionService) Current(ctx context.Context, actor domain.Actor) (*domain.Analysis, error) {
	a, err := s.uow.Analyses().FindInFlight(ctx, actor.UserID)
	if err == nil {
		return a, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	a, err = s.uow.Analyses().Latest(ctx, actor.UserID)
	if isNotFound(err) {
		return nil, nil
	}
	return a, err
}

// dispatch hands the analysis to the job queue after commit. Failures are
// logged and counted; the admitted analysis stays pending for the stale worker.
func (s *AdmissionService) dispatch(ctx context.Context, analysisID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	go func() {
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, analysisID); err != nil {
			s.logger.Error("failed to dispatch analysis job",
				slog.String("analysis_id", analysisID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func admissionResult(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, domain.ErrAlreadyInFlight):
		return ReasonInFlight
	case errors.Is(err, domain.ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, domain.ErrInsufficientCredits):
		return ReasonInsufficientCredits
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrForbidden):
		return "invalid"
	default:
		return "error"
	}
}
