package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

func TestDashboardCountsAndSuccessRate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	yes, no := true, false

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, h.suggestion(t, member, "step").ID)
	}
	_, err := h.suggestions.UpdateStatus(ctx, member, ids[0], domain.SuggestionCompleted)
	require.NoError(t, err)
	_, err = h.suggestions.SetFeedback(ctx, member, ids[0], &yes)
	require.NoError(t, err)
	_, err = h.suggestions.UpdateStatus(ctx, member, ids[1], domain.SuggestionCompleted)
	require.NoError(t, err)
	_, err = h.suggestions.SetFeedback(ctx, member, ids[1], &no)
	require.NoError(t, err)
	_, err = h.suggestions.UpdateStatus(ctx, member, ids[2], domain.SuggestionCompleted)
	require.NoError(t, err)
	_, err = h.suggestions.Reject(ctx, member, ids[3])
	require.NoError(t, err)

	// Other stores do not leak in.
	h.suggestion(t, outsider)

	d, err := h.impact.Dashboard(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Total)
	assert.Equal(t, 3, d.Completed)
	assert.Equal(t, 1, d.Ignored)
	assert.Equal(t, 1, d.Successful)
	assert.Equal(t, 1, d.Unsuccessful)
	assert.Equal(t, 1, d.PendingFeedback)
	assert.InDelta(t, 50.0, d.SuccessRate, 0.001)
	require.Contains(t, d.ByCategory, "pricing")
	assert.Equal(t, 4, d.ByCategory["pricing"].Total)
}

func TestDashboardCachedUntilSuggestionWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	d, err := h.impact.Dashboard(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Completed)

	// A write behind the service's back is not visible while cached.
	cp := *sg
	cp.Status = domain.SuggestionCompleted
	require.NoError(t, h.store.Suggestions().Update(ctx, &cp))
	d, err = h.impact.Dashboard(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Completed)

	_, err = h.suggestions.UpdateStatus(ctx, member, sg.ID, domain.SuggestionInProgress)
	require.NoError(t, err)
	d, err = h.impact.Dashboard(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Completed)
	assert.Equal(t, 1, d.InProgress)
}

func TestDashboardEmptyStore(t *testing.T) {
	h := newHarness(t)
	d, err := h.impact.Dashboard(context.Background(), member)
	require.NoError(t, err)
	assert.Zero(t, d.Total)
	assert.Zero(t, d.SuccessRate)
	assert.Empty(t, d.ByCategory)
}
