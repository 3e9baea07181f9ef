package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Credits().Ensure(ctx, "u1", "store-1"))
	_, err := s.Credits().Credit(ctx, "u1", 5)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if _, err := r.Credits().Debit(ctx, "u1", 3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	bal, err := s.Credits().Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, bal)
}

func TestDebitRefusesOverdraft(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Credits().Ensure(ctx, "u1", ""))

	_, err := s.Credits().Debit(ctx, "u1", 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	_, err = s.Credits().Balance(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSecondInFlightAnalysisRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.Analyses().Create(ctx, &domain.Analysis{ID: "a1", UserID: "u1", Status: domain.AnalysisPending, CreatedAt: now}))
	err := s.Analyses().Create(ctx, &domain.Analysis{ID: "a2", UserID: "u1", Status: domain.AnalysisPending, CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrAlreadyInFlight)

	// Another user is unaffected.
	require.NoError(t, s.Analyses().Create(ctx, &domain.Analysis{ID: "a3", UserID: "u2", Status: domain.AnalysisProcessing, CreatedAt: now}))
}

func TestStepsOrderedByPositionThenInsertion(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Suggestions().Create(ctx, &domain.Suggestion{ID: "sg", StoreID: "st"}))

	for _, st := range []domain.Step{
		{ID: "b", SuggestionID: "sg", Position: 1},
		{ID: "a", SuggestionID: "sg", Position: 0},
		{ID: "c", SuggestionID: "sg", Position: 1},
	} {
		st := st
		require.NoError(t, s.Steps().Create(ctx, &st))
	}

	list, err := s.Steps().ListBySuggestion(ctx, "sg")
	require.NoError(t, err)
	var ids []string
	for _, st := range list {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	top, err := s.Steps().MaxPosition(ctx, "sg")
	require.NoError(t, err)
	assert.Equal(t, 1, top)
}

func TestDeleteStepDetachesComments(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Suggestions().Create(ctx, &domain.Suggestion{ID: "sg", StoreID: "st"}))
	require.NoError(t, s.Steps().Create(ctx, &domain.Step{ID: "step", SuggestionID: "sg", IsCustom: true}))
	require.NoError(t, s.Comments().Create(ctx, &domain.Comment{ID: "c1", SuggestionID: "sg", Scope: domain.StepComment("step")}))

	require.NoError(t, s.Steps().Delete(ctx, "step"))

	c, err := s.Comments().GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeGeneral, c.Scope.Kind)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Suggestions().Create(ctx, &domain.Suggestion{ID: "sg", StoreID: "st", RecommendedAction: []string{"x"}}))

	got, err := s.Suggestions().GetByID(ctx, "sg")
	require.NoError(t, err)
	got.RecommendedAction[0] = "mutated"
	got.Title = "mutated"

	again, err := s.Suggestions().GetByID(ctx, "sg")
	require.NoError(t, err)
	assert.Equal(t, "x", again.RecommendedAction[0])
	assert.Empty(t, again.Title)
}
