package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisTransitions(t *testing.T) {
	statuses := []AnalysisStatus{AnalysisPending, AnalysisProcessing, AnalysisCompleted, AnalysisFailed}
	allowedEdges := map[string]bool{
		"pending->processing":   true,
		"pending->completed":    true,
		"pending->failed":       true,
		"processing->completed": true,
		"processing->failed":    true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			edge := fmt.Sprintf("%s->%s", from, to)
			assert.Equal(t, allowedEdges[edge], from.CanTransition(to), edge)
		}
	}

	assert.True(t, AnalysisPending.InFlight())
	assert.True(t, AnalysisProcessing.InFlight())
	assert.False(t, AnalysisFailed.InFlight())
	assert.True(t, AnalysisCompleted.Terminal())
	assert.False(t, AnalysisProcessing.Terminal())
}

func TestSuggestionStatusValid(t *testing.T) {
	for _, s := range SuggestionStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SuggestionStatus("archived").Valid())
	assert.False(t, SuggestionStatus("").Valid())
	assert.False(t, SuggestionStatus("archived").CanTransition(SuggestionPending))
}

func TestProgress(t *testing.T) {
	mk := func(done, total int) []*Step {
		steps := make([]*Step, total)
		for i := range steps {
			steps[i] = &Step{Status: StepPending}
			if i < done {
				steps[i].Status = StepCompleted
			}
		}
		return steps
	}

	tests := []struct {
		done, total int
		want        int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{2, 4, 50},
		{2, 5, 40},
		{1, 8, 13},
		{3, 3, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.done, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, Progress(mk(tt.done, tt.total)))
		})
	}
}

func TestStepToggle(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &Step{Status: StepPending}

	s.Toggle("u1", at)
	assert.Equal(t, StepCompleted, s.Status)
	require.NotNil(t, s.CompletedBy)
	assert.Equal(t, "u1", *s.CompletedBy)
	assert.Equal(t, at, *s.CompletedAt)

	s.Toggle("u2", at)
	assert.Equal(t, StepPending, s.Status)
	assert.Nil(t, s.CompletedAt)
	assert.Nil(t, s.CompletedBy)
}

func TestTaskStateMachine(t *testing.T) {
	at := time.Now()
	task := &Task{Status: TaskPending}

	require.NoError(t, task.Start())
	assert.ErrorIs(t, task.Start(), ErrInvalidTransition)
	assert.ErrorIs(t, task.Uncomplete(), ErrInvalidTransition)
	require.NoError(t, task.Complete("u1", at))
	assert.ErrorIs(t, task.Complete("u1", at), ErrInvalidTransition)
	require.NoError(t, task.Uncomplete())
	assert.Nil(t, task.CompletedAt)

	var te *TransitionError
	require.True(t, errors.As((&Task{Status: TaskCompleted}).Start(), &te))
	assert.Equal(t, "task", te.Entity)
	assert.Equal(t, "completed", te.From)
	assert.Equal(t, "in_progress", te.To)
}

func TestScopes(t *testing.T) {
	assert.Equal(t, GeneralTask(), TaskScopeFrom(nil))
	idx := 2
	linked := TaskScopeFrom(&idx)
	assert.Equal(t, LinkedTask(2), linked)
	require.NotNil(t, linked.Index())
	assert.Equal(t, 2, *linked.Index())
	assert.Nil(t, GeneralTask().Index())

	empty := ""
	assert.Equal(t, GeneralComment(), CommentScopeFrom(&empty))
	assert.Equal(t, GeneralComment(), CommentScopeFrom(nil))
	id := "step-1"
	sc := CommentScopeFrom(&id)
	assert.Equal(t, StepComment("step-1"), sc)
	assert.Equal(t, "step-1", *sc.Ref())
	assert.Nil(t, GeneralComment().Ref())
}

func TestHasStepIndex(t *testing.T) {
	s := &Suggestion{RecommendedAction: []string{"a", "b", "c"}}
	assert.True(t, s.HasStepIndex(0))
	assert.True(t, s.HasStepIndex(2))
	assert.False(t, s.HasStepIndex(3))
	assert.False(t, s.HasStepIndex(-1))
	assert.False(t, (&Suggestion{}).HasStepIndex(0))
}

func TestCommentCanDelete(t *testing.T) {
	c := &Comment{UserID: "u1"}
	assert.True(t, c.CanDelete(Actor{UserID: "u1", Role: RoleMember}))
	assert.False(t, c.CanDelete(Actor{UserID: "u2", Role: RoleMember}))
	assert.True(t, c.CanDelete(Actor{UserID: "u2", Role: RoleAdmin}))
	assert.False(t, c.CanDelete(Actor{UserID: "svc", Role: RoleService}))
}

func TestBuildDashboard(t *testing.T) {
	yes, no := true, false
	d := BuildDashboard("store-1", []*Suggestion{
		{Category: "pricing", Status: SuggestionCompleted, WasSuccessful: &yes},
		{Category: "pricing", Status: SuggestionCompleted, WasSuccessful: &yes},
		{Category: "inventory", Status: SuggestionCompleted, WasSuccessful: &no},
		{Category: "inventory", Status: SuggestionCompleted},
		{Category: "", Status: SuggestionInProgress},
		{Category: "marketing", Status: SuggestionIgnored, WasSuccessful: &no},
	})

	assert.Equal(t, "store-1", d.StoreID)
	assert.Equal(t, 6, d.Total)
	assert.Equal(t, 4, d.Completed)
	assert.Equal(t, 1, d.InProgress)
	assert.Equal(t, 1, d.Ignored)
	assert.Equal(t, 2, d.Successful)
	assert.Equal(t, 2, d.Unsuccessful)
	assert.Equal(t, 1, d.PendingFeedback)
	assert.InDelta(t, 50.0, d.SuccessRate, 0.001)
	assert.Equal(t, &CategoryImpact{Total: 2, Completed: 2, Successful: 2}, d.ByCategory["pricing"])
	assert.Equal(t, 1, d.ByCategory["uncategorized"].Total)
}

func TestBuildDashboardRoundsRate(t *testing.T) {
	yes, no := true, false
	d := BuildDashboard("s", []*Suggestion{
		{Status: SuggestionCompleted, WasSuccessful: &yes},
		{Status: SuggestionCompleted, WasSuccessful: &no},
		{Status: SuggestionCompleted, WasSuccessful: &no},
	})
	assert.InDelta(t, 33.33, d.SuccessRate, 0.0001)
}

func TestErrorsMatchSentinels(t *testing.T) {
	next := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	err := fmt.Errorf("wrapped: %w", &RateLimitedError{NextAvailableAt: next})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "2026-05-01T10:00:00Z")

	var rl *RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, next, rl.NextAvailableAt)

	assert.ErrorIs(t, &TransitionError{Entity: "suggestion"}, ErrInvalidTransition)
	v := Validationf("title is required")
	assert.ErrorIs(t, v, ErrValidation)
	assert.Contains(t, v.Error(), "title is required")
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleAdmin.Elevated())
	assert.False(t, RoleMember.Elevated())
	assert.False(t, RoleService.Elevated())
	assert.True(t, RoleService.Valid())
	assert.False(t, Role("owner").Valid())
}
