package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
	"github.com/aryan0dhankhar/storepulse/internal/repository/memory"
	"github.com/aryan0dhankhar/storepulse/pkg/config"
)

var (
	member    = domain.Actor{UserID: "user-1", StoreID: "store-1", Role: domain.RoleMember}
	teammate  = domain.Actor{UserID: "user-2", StoreID: "store-1", Role: domain.RoleMember}
	outsider  = domain.Actor{UserID: "user-9", StoreID: "store-9", Role: domain.RoleMember}
	admin     = domain.Actor{UserID: "admin-1", StoreID: "store-1", Role: domain.RoleAdmin}
	processor = domain.Actor{UserID: "processor", Role: domain.RoleService}
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakeDispatcher) Dispatched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func testPolicy() config.AdmissionPolicy {
	return config.AdmissionPolicy{CooldownMinutes: 60, CreditCost: 1, PeriodDays: 30, RefundFailed: true}
}

type harness struct {
	store       *memory.Store
	clock       *testClock
	dispatcher  *fakeDispatcher
	credits     *CreditService
	admission   *AdmissionService
	analyses    *AnalysisService
	suggestions *SuggestionService
	steps       *StepService
	tasks       *TaskService
	comments    *CommentService
	impact      *ImpactService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:      memory.New(),
		clock:      newTestClock(),
		dispatcher: &fakeDispatcher{},
	}
	h.impact = NewImpactService(h.store.Suggestions(), time.Hour, nil)
	h.credits = NewCreditService(h.store, nil, nil)
	h.admission = NewAdmissionService(h.store, testPolicy(), h.dispatcher, nil, nil, nil)
	h.admission.now = h.clock.Now
	h.analyses = NewAnalysisService(h.store, true, h.impact, nil, nil)
	h.analyses.now = h.clock.Now
	h.suggestions = NewSuggestionService(h.store, h.impact, nil, nil)
	h.suggestions.now = h.clock.Now
	h.steps = NewStepService(h.store, nil, nil)
	h.steps.now = h.clock.Now
	h.tasks = NewTaskService(h.store, nil, nil)
	h.tasks.now = h.clock.Now
	h.comments = NewCommentService(h.store, nil, nil)
	h.comments.now = h.clock.Now
	return h
}

// fund sets up actor's ledger row with the given balance.
func (h *harness) fund(t *testing.T, actor domain.Actor, credits int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Credits().Ensure(ctx, actor.UserID, actor.StoreID))
	if credits > 0 {
		_, err := h.store.Credits().Credit(ctx, actor.UserID, credits)
		require.NoError(t, err)
	}
}

func (h *harness) balance(t *testing.T, actor domain.Actor) int {
	t.Helper()
	bal, err := h.store.Credits().Balance(context.Background(), actor.UserID)
	require.NoError(t, err)
	return bal
}

// suggestion creates a manual suggestion in actor's store.
func (h *harness) suggestion(t *testing.T, actor domain.Actor, actions ...string) *domain.Suggestion {
	t.Helper()
	sg, err := h.suggestions.Create(context.Background(), actor, CreateSuggestionInput{
		Category:          "pricing",
		Title:             "Raise prices on best sellers",
		RecommendedAction: actions,
	})
	require.NoError(t, err)
	return sg
}
