package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/pkg/cache"
)

const dashboardKeyPrefix = "dashboard:"

// ImpactService aggregates suggestion feedback into per-store impact figures.
// Results are cached briefly and dropped on every suggestion write.
type ImpactService struct {
	suggestions domain.SuggestionRepository
	cache       *cache.Cache[*domain.ImpactDashboard]
	logger      *slog.Logger
}

// NewImpactService creates an impact service. ttl <= 0 disables caching.
func NewImpactService(suggestions domain.SuggestionRepository, ttl time.Duration, logger *slog.Logger) *ImpactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpactService{
		suggestions: suggestions,
		cache:       cache.New[*domain.ImpactDashboard](ttl),
		logger:      logger,
	}
}

// Dashboard returns the actor's store impact figures.
func (s *ImpactService) Dashboard(ctx context.Context, actor domain.Actor) (*domain.ImpactDashboard, error) {
	if err := requireStore(actor); err != nil {
		return nil, err
	}
	key := dashboardKeyPrefix + actor.StoreID
	if d, ok := s.cache.Get(key); ok {
		return d, nil
	}

	list, err := s.suggestions.ListByStore(ctx, actor.StoreID, domain.SuggestionFilter{})
	if err != nil {
		return nil, err
	}
	d := domain.BuildDashboard(actor.StoreID, list)
	s.cache.Set(key, d)
	return d, nil
}

// Invalidate drops the cached dashboard for storeID.
func (s *ImpactService) Invalidate(storeID string) {
	s.cache.Delete(dashboardKeyPrefix + storeID)
}
