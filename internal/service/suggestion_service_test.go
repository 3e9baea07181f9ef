package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

// resetTo puts sg into status bypassing the state machine.
func resetTo(t *testing.T, h *harness, sg *domain.Suggestion, status domain.SuggestionStatus) {
	t.Helper()
	cp := *sg
	cp.Status = status
	require.NoError(t, h.store.Suggestions().Update(context.Background(), &cp))
}

func TestUpdateStatusTransitionClosure(t *testing.T) {
	allowed := map[[2]domain.SuggestionStatus]bool{
		{domain.SuggestionPending, domain.SuggestionInProgress}:   true,
		{domain.SuggestionPending, domain.SuggestionCompleted}:    true,
		{domain.SuggestionPending, domain.SuggestionIgnored}:      true,
		{domain.SuggestionInProgress, domain.SuggestionCompleted}: true,
		{domain.SuggestionInProgress, domain.SuggestionIgnored}:   true,
		{domain.SuggestionCompleted, domain.SuggestionInProgress}: true,
		{domain.SuggestionIgnored, domain.SuggestionPending}:      true,
	}

	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	for _, from := range domain.SuggestionStatuses {
		for _, to := range domain.SuggestionStatuses {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				resetTo(t, h, sg, from)

				got, err := h.suggestions.UpdateStatus(ctx, member, sg.ID, to)
				if allowed[[2]domain.SuggestionStatus{from, to}] {
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
					return
				}
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				stored, err := h.store.Suggestions().GetByID(ctx, sg.ID)
				require.NoError(t, err)
				assert.Equal(t, from, stored.Status, "rejected transition must not change status")
			})
		}
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)
	sg := h.suggestion(t, member)
	_, err := h.suggestions.UpdateStatus(context.Background(), member, sg.ID, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAcceptAndReject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	got, err := h.suggestions.Accept(ctx, teammate, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionInProgress, got.Status)

	got, err = h.suggestions.Reject(ctx, member, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionIgnored, got.Status)

	_, err = h.suggestions.Reject(ctx, member, sg.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSuggestionAccessIsScopedToStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	_, err := h.suggestions.Get(ctx, outsider, sg.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.suggestions.Accept(ctx, outsider, sg.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.suggestions.Get(ctx, member, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := h.suggestions.List(ctx, outsider, domain.SuggestionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSetFeedbackIndependentOfStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	yes := true
	got, err := h.suggestions.SetFeedback(ctx, member, sg.ID, &yes)
	require.NoError(t, err)
	require.NotNil(t, got.WasSuccessful)
	assert.True(t, *got.WasSuccessful)
	assert.Equal(t, domain.SuggestionPending, got.Status)

	got, err = h.suggestions.SetFeedback(ctx, member, sg.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.WasSuccessful)
}

func TestGetReturnsDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member, "a", "b")

	steps, _, err := h.steps.ListSteps(ctx, member, sg.ID)
	require.NoError(t, err)
	_, err = h.steps.ToggleStep(ctx, member, sg.ID, steps[0].ID)
	require.NoError(t, err)
	_, err = h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "Call supplier"})
	require.NoError(t, err)
	_, err = h.comments.AddComment(ctx, member, sg.ID, "On it", nil)
	require.NoError(t, err)

	d, err := h.suggestions.Get(ctx, member, sg.ID)
	require.NoError(t, err)
	assert.Len(t, d.Steps, 2)
	assert.Len(t, d.Tasks, 1)
	assert.Len(t, d.Comments, 1)
	assert.Equal(t, 50, d.Progress)
}

func TestCreateValidatesInput(t *testing.T) {
	h := newHarness(t)
	_, err := h.suggestions.Create(context.Background(), member, CreateSuggestionInput{Title: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.suggestions.Create(context.Background(), member, CreateSuggestionInput{Title: "ok", RecommendedAction: []string{"x", ""}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
