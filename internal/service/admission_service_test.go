package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/infrastructure/redislock"
)

func TestRequestAnalysisDebitsAndBlocksSecondRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, member, 1)

	a, err := h.admission.RequestAnalysis(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisPending, a.Status)
	assert.Equal(t, 1, a.CreditsUsed)
	assert.Equal(t, h.clock.Now(), a.PeriodEnd)
	assert.Equal(t, h.clock.Now().Add(-30*24*time.Hour), a.PeriodStart)
	assert.Equal(t, 0, h.balance(t, member))

	// The first analysis is still pending, so in-flight wins over credits.
	_, err = h.admission.RequestAnalysis(ctx, member)
	assert.ErrorIs(t, err, domain.ErrAlreadyInFlight)
	assert.NotErrorIs(t, err, domain.ErrInsufficientCredits)

	assert.Eventually(t, func() bool {
		ids := h.dispatcher.Dispatched()
		return len(ids) == 1 && ids[0] == a.ID
	}, time.Second, 5*time.Millisecond)
}

func TestConcurrentRequestsAdmitAtMostOne(t *testing.T) {
	h := newHarness(t)
	h.fund(t, member, 50)

	const callers = 25
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.admission.RequestAnalysis(context.Background(), member)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyInFlight)
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 49, h.balance(t, member))
}

func TestRequestAnalysisRateLimitedAfterFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, member, 1)

	first, err := h.admission.RequestAnalysis(ctx, member)
	require.NoError(t, err)
	_, err = h.analyses.Fail(ctx, processor, first.ID, "provider error", SourceProcessor)
	require.NoError(t, err)
	assert.Equal(t, 1, h.balance(t, member), "failed analysis refunds its credit")

	h.clock.Advance(10 * time.Minute)
	_, err = h.admission.RequestAnalysis(ctx, member)
	var rl *domain.RateLimitedError
	require.True(t, errors.As(err, &rl), "got %v", err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, first.CreatedAt.Add(time.Hour), rl.NextAvailableAt)

	h.clock.Advance(50 * time.Minute)
	_, err = h.admission.RequestAnalysis(ctx, member)
	assert.NoError(t, err)
}

func TestRequestAnalysisWithoutCredits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.admission.RequestAnalysis(ctx, member)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	current, err := h.admission.Current(ctx, member)
	require.NoError(t, err)
	assert.Nil(t, current, "rejected request must not leave an analysis behind")
	assert.Empty(t, h.dispatcher.Dispatched())
}

func TestRequestAnalysisRequiresStore(t *testing.T) {
	h := newHarness(t)
	_, err := h.admission.RequestAnalysis(context.Background(), domain.Actor{UserID: "u", Role: domain.RoleMember})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type busyLocker struct{}

func (busyLocker) Obtain(context.Context, string) (redislock.Release, error) {
	return nil, redislock.ErrNotObtained
}

type brokenLocker struct{}

func (brokenLocker) Obtain(context.Context, string) (redislock.Release, error) {
	return nil, errors.New("redis down")
}

func TestAdmissionLock(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, member, 1)
		h.admission.locker = busyLocker{}

		_, err := h.admission.RequestAnalysis(context.Background(), member)
		assert.ErrorIs(t, err, domain.ErrAlreadyInFlight)
		assert.Equal(t, 1, h.balance(t, member))
	})

	t.Run("lock backend unavailable", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, member, 1)
		h.admission.locker = brokenLocker{}

		_, err := h.admission.RequestAnalysis(context.Background(), member)
		assert.NoError(t, err)
	})
}

func TestAdmissionStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	st, err := h.admission.Status(ctx, member)
	require.NoError(t, err)
	assert.False(t, st.CanRequest)
	assert.Equal(t, ReasonInsufficientCredits, st.Reason)

	h.fund(t, member, 2)
	st, err = h.admission.Status(ctx, member)
	require.NoError(t, err)
	assert.True(t, st.CanRequest)
	assert.Equal(t, 2, st.Credits)
	assert.Equal(t, 1, st.Cost)

	a, err := h.admission.RequestAnalysis(ctx, member)
	require.NoError(t, err)
	st, err = h.admission.Status(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, ReasonInFlight, st.Reason)
	assert.Equal(t, a.ID, st.InFlightID)

	_, err = h.analyses.Complete(ctx, processor, a.ID, domain.AnalysisResult{Status: domain.AnalysisCompleted})
	require.NoError(t, err)
	st, err = h.admission.Status(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, ReasonRateLimited, st.Reason)
	require.NotNil(t, st.NextAvailableAt)
	assert.Equal(t, a.CreatedAt.Add(time.Hour), *st.NextAvailableAt)
}

func TestCurrentPrefersInFlight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fund(t, member, 5)

	first, err := h.admission.RequestAnalysis(ctx, member)
	require.NoError(t, err)
	_, err = h.analyses.Complete(ctx, processor, first.ID, domain.AnalysisResult{Status: domain.AnalysisCompleted})
	require.NoError(t, err)

	current, err := h.admission.Current(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
	assert.Equal(t, domain.AnalysisCompleted, current.Status)

	h.clock.Advance(2 * time.Hour)
	second, err := h.admission.RequestAnalysis(ctx, member)
	require.NoError(t, err)

	current, err = h.admission.Current(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}
