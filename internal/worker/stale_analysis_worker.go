package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
)

// AnalysisSupervisor is the slice of the analysis service the worker drives.
type AnalysisSupervisor interface {
	FailStale(ctx context.Context, cutoff time.Time) (int, error)
	InFlightCount(ctx context.Context) (int, error)
}

// StaleAnalysisWorker periodically fails analyses that have been in flight
// longer than maxAge, so a lost job cannot block its user forever.
type StaleAnalysisWorker struct {
	analyses AnalysisSupervisor
	logger   *slog.Logger
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

// NewStaleAnalysisWorker creates a new stale analysis worker
func NewStaleAnalysisWorker(
	analyses AnalysisSupervisor,
	logger *slog.Logger,
	interval time.Duration,
	maxAge time.Duration,
) *StaleAnalysisWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaleAnalysisWorker{
		analyses: analyses,
		logger:   logger,
		interval: interval,
		maxAge:   maxAge,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the check loop until ctx is cancelled.
func (w *StaleAnalysisWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stale analysis worker started",
		slog.Duration("interval", w.interval),
		slog.Duration("max_age", w.maxAge),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stale analysis worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce fails every analysis older than maxAge and refreshes the in-flight
// gauge. It returns how many analyses were failed.
func (w *StaleAnalysisWorker) RunOnce(ctx context.Context) int {
	cutoff := w.now().Add(-w.maxAge)
	failed, err := w.analyses.FailStale(ctx, cutoff)
	if err != nil {
		w.logger.Error("failed to fail stale analyses",
			slog.Int("failed", failed),
			slog.String("error", err.Error()),
		)
	} else if failed > 0 {
		w.logger.Warn("failed stale analyses",
			slog.Int("count", failed),
			slog.Time("cutoff", cutoff),
		)
	}

	count, err := w.analyses.InFlightCount(ctx)
	if err != nil {
		w.logger.Error("failed to count in-flight analyses", slog.String("error", err.Error()))
		return failed
	}
	metrics.SetInFlight(count)
	return failed
}
