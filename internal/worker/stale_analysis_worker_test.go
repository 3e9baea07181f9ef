package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupervisor struct {
	mu       sync.Mutex
	cutoffs  []time.Time
	failed   int
	failErr  error
	inFlight int
}

func (f *fakeSupervisor) FailStale(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.failed, f.failErr
}

func (f *fakeSupervisor) InFlightCount(context.Context) (int, error) {
	return f.inFlight, nil
}

func (f *fakeSupervisor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestRunOnceUsesMaxAgeCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sup := &fakeSupervisor{failed: 2, inFlight: 1}
	w := NewStaleAnalysisWorker(sup, nil, time.Minute, 30*time.Minute)
	w.now = func() time.Time { return now }

	assert.Equal(t, 2, w.RunOnce(context.Background()))
	require.Len(t, sup.cutoffs, 1)
	assert.Equal(t, now.Add(-30*time.Minute), sup.cutoffs[0])
}

func TestRunOnceSurvivesErrors(t *testing.T) {
	sup := &fakeSupervisor{failed: 1, failErr: errors.New("db down")}
	w := NewStaleAnalysisWorker(sup, nil, time.Minute, time.Minute)

	assert.Equal(t, 1, w.RunOnce(context.Background()))
}

func TestStartStopsOnCancel(t *testing.T) {
	sup := &fakeSupervisor{}
	w := NewStaleAnalysisWorker(sup, nil, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sup.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
