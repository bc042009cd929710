package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/socialpulse/content-engine/internal/content"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func newMockStore(t *testing.T) (*TaskStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewTaskStoreWithPool(mock, "tasks", fakeClock{now: time.Unix(1700000000, 0).UTC()})
	require.NoError(t, err)
	return store, mock
}

func TestCreateTaskInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	task := content.Task{
		ID:        "uuid-v7",
		Status:    content.TaskStatusStarted,
		Submitted: now,
		URLs:      []string{"https://x.com/a"},
		URLsDetected: []content.URLAnalysis{
			{Index: 1, URL: "https://x.com/a", Platform: content.PlatformTwitter, Username: "a", Status: "pending"},
		},
		Platforms: []content.Platform{content.PlatformTwitter},
	}

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(
			task.ID,
			"started",
			task.Submitted,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateTask(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskStatusStampsTerminal(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT status FROM tasks").
		WithArgs("uuid-v7").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("processing"))
	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs("uuid-v7", "completed", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateTaskStatus(context.Background(), "uuid-v7", content.TaskStatusCompleted, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskStatusRejectsTerminalRewrites(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT status FROM tasks").
		WithArgs("uuid-v7").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("error"))

	err := store.UpdateTaskStatus(context.Background(), "uuid-v7", content.TaskStatusProcessing, "")
	require.ErrorIs(t, err, content.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTaskResultUpdatesRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT status FROM tasks").
		WithArgs("uuid-v7").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("processing"))
	mock.ExpectExec("UPDATE tasks SET result").
		WithArgs("uuid-v7", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.SetTaskResult(context.Background(), "uuid-v7",
		[]content.ScoredPost{{EngagementScore: 6942.5, PostNumber: "post_1"}},
		[]string{"twitter"}, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTaskNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetTask(context.Background(), "missing")
	require.ErrorIs(t, err, content.ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewTaskStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTaskStoreWithPool(nil, "tasks", fakeClock{})
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewTaskStoreWithPool(mock, "tasks; drop table tasks", fakeClock{})
	require.Error(t, err)
}
