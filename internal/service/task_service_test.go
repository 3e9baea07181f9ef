package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/storepulse/internal/domain"
)

func intPtr(i int) *int { return &i }

func TestCreateTaskStepIndexRange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member, "a", "b", "c")

	_, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "out of range", StepIndex: intPtr(3)})
	assert.ErrorIs(t, err, domain.ErrInvalidStepIndex)
	_, err = h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "negative", StepIndex: intPtr(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidStepIndex)

	task, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "last action", StepIndex: intPtr(2)})
	require.NoError(t, err)
	assert.True(t, task.IsLinkedToStep())
	assert.Equal(t, 2, task.Scope.StepIndex)

	general, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "general"})
	require.NoError(t, err)
	assert.True(t, general.IsGeneral())
	assert.Nil(t, general.Scope.Index())
}

func TestTaskLifecycleRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	task, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "Restock"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, task.Status)

	task, err = h.tasks.Start(ctx, member, sg.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)

	h.clock.Advance(time.Minute)
	task, err = h.tasks.Complete(ctx, teammate, sg.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedBy)
	assert.Equal(t, teammate.UserID, *task.CompletedBy)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, h.clock.Now(), *task.CompletedAt)

	task, err = h.tasks.Uncomplete(ctx, member, sg.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.CompletedBy)
}

func TestTaskInvalidTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	task, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "done already", Status: domain.TaskCompleted})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedBy)
	assert.Equal(t, member.UserID, *task.CompletedBy)

	_, err = h.tasks.Start(ctx, member, sg.ID, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = h.tasks.Complete(ctx, member, sg.ID, task.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := h.store.Tasks().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, stored.Status)

	pending, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "fresh"})
	require.NoError(t, err)
	_, err = h.tasks.Uncomplete(ctx, member, sg.ID, pending.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "odd", Status: "blocked"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateTaskFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)
	due := h.clock.Now().Add(72 * time.Hour)

	task, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "Email customers", DueDate: &due})
	require.NoError(t, err)

	title := "Email top customers"
	task, err = h.tasks.UpdateTask(ctx, teammate, sg.ID, task.ID, UpdateTaskInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, task.Title)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, due, *task.DueDate)

	task, err = h.tasks.UpdateTask(ctx, member, sg.ID, task.ID, UpdateTaskInput{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, task.DueDate)

	blank := " "
	_, err = h.tasks.UpdateTask(ctx, member, sg.ID, task.ID, UpdateTaskInput{Title: &blank})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteTaskPermissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member)

	task, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "mine"})
	require.NoError(t, err)
	assert.ErrorIs(t, h.tasks.DeleteTask(ctx, teammate, sg.ID, task.ID), domain.ErrForbidden)
	require.NoError(t, h.tasks.DeleteTask(ctx, admin, sg.ID, task.ID))

	task, err = h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "mine again"})
	require.NoError(t, err)
	require.NoError(t, h.tasks.DeleteTask(ctx, member, sg.ID, task.ID))

	_, err = h.store.Tasks().GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTasksFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sg := h.suggestion(t, member, "a", "b")

	general, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "general"})
	require.NoError(t, err)
	first, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "for a", StepIndex: intPtr(0)})
	require.NoError(t, err)
	second, err := h.tasks.CreateTask(ctx, member, sg.ID, CreateTaskInput{Title: "for b", StepIndex: intPtr(1)})
	require.NoError(t, err)

	all, err := h.tasks.ListTasks(ctx, member, sg.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{general.ID, first.ID, second.ID}, taskIDs(all))

	onlyGeneral, err := h.tasks.ListTasks(ctx, member, sg.ID, TaskFilter{GeneralOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{general.ID}, taskIDs(onlyGeneral))

	forB, err := h.tasks.ListTasks(ctx, member, sg.ID, TaskFilter{StepIndex: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, taskIDs(forB))

	_, err = h.tasks.ListTasks(ctx, outsider, sg.ID, TaskFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func taskIDs(tasks []*domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
