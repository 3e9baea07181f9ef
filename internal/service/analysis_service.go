package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
	"github.com/aryan0dhankhar/storepulse/internal/security/audit"
)

// Sources of analysis state changes, used in metrics and logs.
const (
	SourceProcessor = "processor"
	SourceStale     = "stale_worker"
	SourceAdmin     = "admin"
)

// AnalysisService applies job processor results to analyses. When an analysis
// completes, its suggestions become independent tracked records.
type AnalysisService struct {
	uow          domain.UnitOfWork
	refundFailed bool
	dashboards   DashboardInvalidator
	audit        *audit.Logger
	logger       *slog.Logger
	now          func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(uow domain.UnitOfWork, refundFailed bool, dashboards DashboardInvalidator, auditLog *audit.Logger, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if dashboards == nil {
		dashboards = noopInvalidator{}
	}
	return &AnalysisService{
		uow:          uow,
		refundFailed: refundFailed,
		dashboards:   dashboards,
		audit:        auditLog,
		logger:       logger,
		now:          utcNow,
	}
}

// Get returns an analysis visible to the actor: its requester, its store's
// members, or the job processor.
func (s *AnalysisService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Analysis, error) {
	a, err := s.uow.Analyses().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleService && a.UserID != actor.UserID && a.StoreID != actor.StoreID {
		return nil, domain.ErrForbidden
	}
	return a, nil
}

// ListForStore returns the actor's store analyses newest first
func (s *AnalysisService) ListForStore(ctx context.Context, actor domain.Actor, limit int) ([]*domain.Analysis, error) {
	if err := requireStore(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.uow.Analyses().ListByStore(ctx, actor.StoreID, limit)
}

// Report applies a processor callback according to result.Status.
func (s *AnalysisService) Report(ctx context.Context, actor domain.Actor, id string, result domain.AnalysisResult) (*domain.Analysis, error) {
	switch result.Status {
	case domain.AnalysisProcessing:
		return s.MarkProcessing(ctx, actor, id)
	case domain.AnalysisCompleted:
		return s.Complete(ctx, actor, id, result)
	case domain.AnalysisFailed:
		return s.Fail(ctx, actor, id, result.Reason, SourceProcessor)
	default:
		return nil, domain.Validationf("status must be one of processing, completed, failed")
	}
}

// MarkProcessing acknowledges that the processor picked the job up.
func (s *AnalysisService) MarkProcessing(ctx context.Context, actor domain.Actor, id string) (*domain.Analysis, error) {
	if err := requireProcessor(actor); err != nil {
		return nil, err
	}

	var out *domain.Analysis
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		a, err := r.Analyses().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := transition(a, domain.AnalysisProcessing); err != nil {
			return err
		}
		out = a
		return r.Analyses().Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogStatusChange(ctx, actor, "analysis", id, string(domain.AnalysisPending), string(domain.AnalysisProcessing))
	return out, nil
}

// Complete attaches the payload and derives one pending suggestion, with its
// system steps, per proposed recommendation. All writes share one transaction.
func (s *AnalysisService) Complete(ctx context.Context, actor domain.Actor, id string, result domain.AnalysisResult) (*domain.Analysis, error) {
	if err := requireProcessor(actor); err != nil {
		return nil, err
	}
	for i, p := range result.Suggestions {
		if p.Title == "" {
			return nil, domain.Validationf("suggestions[%d].title is required", i)
		}
	}

	var out *domain.Analysis
	var from domain.AnalysisStatus
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		a, err := r.Analyses().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status
		if err := transition(a, domain.AnalysisCompleted); err != nil {
			return err
		}

		now := s.now()
		a.Summary = result.Summary
		a.Suggestions = result.Suggestions
		a.Alerts = result.Alerts
		a.Opportunities = result.Opportunities
		if result.CreditsUsed != nil {
			a.CreditsUsed = *result.CreditsUsed
		}
		a.CompletedAt = &now
		if err := r.Analyses().Update(ctx, a); err != nil {
			return err
		}

		for _, p := range result.Suggestions {
			sg := &domain.Suggestion{
				ID:                newID(),
				StoreID:           a.StoreID,
				AnalysisID:        a.ID,
				Category:          p.Category,
				Title:             p.Title,
				Description:       p.Description,
				Priority:          p.Priority,
				RecommendedAction: p.RecommendedAction,
				Status:            domain.SuggestionPending,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := r.Suggestions().Create(ctx, sg); err != nil {
				return err
			}
			if err := seedSteps(ctx, r, sg, now); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dashboards.Invalidate(out.StoreID)
	metrics.ObserveAnalysisOutcome(string(domain.AnalysisCompleted), SourceProcessor)
	s.audit.LogStatusChange(ctx, actor, "analysis", id, string(from), string(domain.AnalysisCompleted))
	s.logger.Info("analysis completed",
		slog.String("analysis_id", id),
		slog.Int("suggestions", len(result.Suggestions)),
	)
	return out, nil
}

// Fail marks the analysis failed and, when configured, refunds its credits.
// A failed analysis no longer blocks admission.
func (s *AnalysisService) Fail(ctx context.Context, actor domain.Actor, id, reason, source string) (*domain.Analysis, error) {
	if err := requireProcessor(actor); err != nil {
		return nil, err
	}

	var out *domain.Analysis
	var from domain.AnalysisStatus
	refunded := 0
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		a, err := r.Analyses().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = a.Status
		if err := transition(a, domain.AnalysisFailed); err != nil {
			return err
		}

		now := s.now()
		a.FailureReason = reason
		a.CompletedAt = &now
		if err := r.Analyses().Update(ctx, a); err != nil {
			return err
		}

		if s.refundFailed && a.CreditsUsed > 0 {
			if _, err := r.Credits().Credit(ctx, a.UserID, a.CreditsUsed); err != nil {
				return err
			}
			refunded = a.CreditsUsed
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveAnalysisOutcome(string(domain.AnalysisFailed), source)
	metrics.ObserveCredits("refund", refunded)
	s.audit.LogStatusChange(ctx, actor, "analysis", id, string(from), string(domain.AnalysisFailed))
	s.logger.Warn("analysis failed",
		slog.String("analysis_id", id),
		slog.String("source", source),
		slog.String("reason", reason),
		slog.Int("refunded", refunded),
	)
	return out, nil
}

// FailStale fails every analysis in flight since before cutoff and returns
// how many were failed. Analyses that finish concurrently are skipped.
func (s *AnalysisService) FailStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.uow.Analyses().ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	system := domain.Actor{UserID: "system", Role: domain.RoleService}
	failed := 0
	for _, a := range stale {
		_, err := s.Fail(ctx, system, a.ID, "timed out waiting for the job processor", SourceStale)
		switch {
		case err == nil:
			failed++
		case errors.Is(err, domain.ErrInvalidTransition):
		default:
			return failed, err
		}
	}
	return failed, nil
}

// InFlightCount returns how many analyses are pending or processing.
func (s *AnalysisService) InFlightCount(ctx context.Context) (int, error) {
	inFlight, err := s.uow.Analyses().ListStale(ctx, s.now().Add(time.Nanosecond))
	if err != nil {
		return 0, err
	}
	return len(inFlight), nil
}

func transition(a *domain.Analysis, next domain.AnalysisStatus) error {
	if !a.Status.CanTransition(next) {
		return &domain.TransitionError{Entity: "analysis", From: string(a.Status), To: string(next)}
	}
	a.Status = next
	return nil
}

func requireProcessor(actor domain.Actor) error {
	if actor.Role != domain.RoleService && actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}
