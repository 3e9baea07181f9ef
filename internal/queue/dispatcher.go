// Package queue hands admitted analyses to the external job processor.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/storepulse/internal/observability/metrics"
	"github.com/aryan0dhankhar/storepulse/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/storepulse/internal/reliability/retry"
)

// Job is the message placed on the queue.
type Job struct {
	AnalysisID string    `json:"analysis_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Publisher pushes raw messages onto a Redis list.
type Publisher interface {
	LPush(ctx context.Context, key string, values ...interface{}) error
}

// Dispatcher enqueues analysis jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, analysisID string) error
}

// RedisDispatcher LPUSHes jobs onto a list, retrying transient failures and
// failing fast while the circuit is open.
type RedisDispatcher struct {
	pub     Publisher
	key     string
	breaker *circuitbreaker.Breaker
	retry   *retry.Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewRedisDispatcher creates a dispatcher writing to the list at key.
func NewRedisDispatcher(pub Publisher, key string, logger *slog.Logger) *RedisDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	cb := circuitbreaker.New(circuitbreaker.Settings{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("job queue circuit state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &RedisDispatcher{
		pub:     pub,
		key:     key,
		breaker: cb,
		retry:   retry.DefaultConfig(),
		logger:  logger,
		now:     time.Now,
	}
}

// Dispatch enqueues analysisID.
func (d *RedisDispatcher) Dispatch(ctx context.Context, analysisID string) error {
	payload, err := json.Marshal(Job{AnalysisID: analysisID, EnqueuedAt: d.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	_, err = retry.Do(ctx, d.retry, d.logger, "dispatch_analysis", func(ctx context.Context) (struct{}, error) {
		err := d.breaker.Execute(func() error {
			return d.pub.LPush(ctx, d.key, string(payload))
		})
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	if err != nil {
		metrics.ObserveDispatch("error")
		return err
	}

	metrics.ObserveDispatch("ok")
	d.logger.Debug("analysis job dispatched",
		slog.String("analysis_id", analysisID),
		slog.String("queue", d.key),
	)
	return nil
}

// LogDispatcher only logs. Used when no Redis is configured.
type LogDispatcher struct {
	Logger *slog.Logger
}

// Dispatch logs analysisID and returns nil.
func (d LogDispatcher) Dispatch(_ context.Context, analysisID string) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("job queue not configured; analysis left pending",
		slog.String("analysis_id", analysisID),
	)
	metrics.ObserveDispatch("skipped")
	return nil
}
