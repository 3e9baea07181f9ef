package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/reliability/retry"
)

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	pushed   map[string][]string
}

func (f *fakePublisher) LPush(_ context.Context, key string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("connection refused")
	}
	if f.pushed == nil {
		f.pushed = map[string][]string{}
	}
	for _, v := range values {
		f.pushed[key] = append(f.pushed[key], v.(string))
	}
	return nil
}

func newTestDispatcher(pub Publisher) *RedisDispatcher {
	d := NewRedisDispatcher(pub, "jobs", nil)
	d.retry = &retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	d.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return d
}

func TestDispatchPushesJob(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	require.NoError(t, d.Dispatch(context.Background(), "a-1"))

	require.Len(t, pub.pushed["jobs"], 1)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(pub.pushed["jobs"][0]), &job))
	assert.Equal(t, "a-1", job.AnalysisID)
	assert.Equal(t, d.now(), job.EnqueuedAt)
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	d := newTestDispatcher(pub)

	require.NoError(t, d.Dispatch(context.Background(), "a-2"))
	assert.Len(t, pub.pushed["jobs"], 1)
}

func TestDispatchGivesUp(t *testing.T) {
	pub := &fakePublisher{failures: 10}
	d := newTestDispatcher(pub)

	err := d.Dispatch(context.Background(), "a-3")
	require.Error(t, err)
	assert.Empty(t, pub.pushed["jobs"])
}
