package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socialpulse/content-engine/internal/content"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func newStore() (*TaskStore, fakeClock) {
	clock := fakeClock{now: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)}
	return NewTaskStore(clock), clock
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, clock := newStore()

	task := content.Task{
		ID:        "t1",
		Status:    content.TaskStatusStarted,
		Submitted: clock.Now(),
		URLs:      []string{"https://x.com/a"},
	}
	require.NoError(t, store.CreateTask(ctx, task))
	require.Error(t, store.CreateTask(ctx, task), "duplicate id rejected")

	require.NoError(t, store.UpdateTaskStatus(ctx, "t1", content.TaskStatusProcessing, ""))
	require.NoError(t, store.SetTaskResult(ctx, "t1",
		[]content.ScoredPost{{EngagementScore: 5, PostNumber: "post_1"}},
		[]string{"twitter"}, []string{"linkedin"}))
	require.NoError(t, store.UpdateTaskStatus(ctx, "t1", content.TaskStatusCompleted, ""))

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, content.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Finished)
	require.Equal(t, clock.now, *got.Finished)
	require.Len(t, got.Result, 1)
	require.Equal(t, []string{"twitter"}, got.SuccessfulScrapers)
	require.Equal(t, []string{"linkedin"}, got.FailedScrapers)
}

func TestTerminalTasksAreImmutable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore()
	require.NoError(t, store.CreateTask(ctx, content.Task{ID: "t1", Status: content.TaskStatusStarted}))
	require.NoError(t, store.UpdateTaskStatus(ctx, "t1", content.TaskStatusError, "all scrapers failed"))

	err := store.UpdateTaskStatus(ctx, "t1", content.TaskStatusCompleted, "")
	require.ErrorIs(t, err, content.ErrInvalidTransition)
	err = store.UpdateTaskStatus(ctx, "t1", content.TaskStatusProcessing, "")
	require.ErrorIs(t, err, content.ErrInvalidTransition)
	err = store.SetTaskResult(ctx, "t1", nil, nil, nil)
	require.ErrorIs(t, err, content.ErrInvalidTransition)

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, content.TaskStatusError, got.Status)
	require.Equal(t, "all scrapers failed", got.ErrorText)
}

func TestTransitionRules(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore()
	require.NoError(t, store.CreateTask(ctx, content.Task{ID: "t1", Status: content.TaskStatusStarted}))

	// started -> started and processing -> processing are not transitions.
	err := store.UpdateTaskStatus(ctx, "t1", content.TaskStatusStarted, "")
	require.ErrorIs(t, err, content.ErrInvalidTransition)

	require.NoError(t, store.UpdateTaskStatus(ctx, "t1", content.TaskStatusProcessing, ""))
	err = store.UpdateTaskStatus(ctx, "t1", content.TaskStatusProcessing, "")
	require.ErrorIs(t, err, content.ErrInvalidTransition)

	// A task may fail straight from started.
	require.NoError(t, store.CreateTask(ctx, content.Task{ID: "t2", Status: content.TaskStatusStarted}))
	require.NoError(t, store.UpdateTaskStatus(ctx, "t2", content.TaskStatusError, "queue full"))
}

func TestGetTaskUnknown(t *testing.T) {
	t.Parallel()

	store, _ := newStore()
	_, err := store.GetTask(context.Background(), "missing")
	require.ErrorIs(t, err, content.ErrTaskNotFound)
	err = store.UpdateTaskStatus(context.Background(), "missing", content.TaskStatusProcessing, "")
	require.ErrorIs(t, err, content.ErrTaskNotFound)
}

func TestGetTaskReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newStore()
	require.NoError(t, store.CreateTask(ctx, content.Task{
		ID:     "t1",
		Status: content.TaskStatusStarted,
		URLs:   []string{"https://x.com/a"},
	}))

	got, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	got.URLs[0] = "mutated"

	again, err := store.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "https://x.com/a", again.URLs[0])
}
