// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/socialpulse/content-engine/internal/content"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TaskStoreConfig controls the Postgres connection pool used for task rows.
type TaskStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// TaskStore persists tasks in Postgres. Status writes enforce the same
// lifecycle as the in-memory store.
type TaskStore struct {
	pool  pool
	table string
	clock content.Clock
}

// NewTaskStore creates a Postgres-backed TaskStore using the provided config.
func NewTaskStore(ctx context.Context, cfg TaskStoreConfig, clock content.Clock) (*TaskStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &TaskStore{pool: p, table: table, clock: clock}, nil
}

// NewTaskStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewTaskStoreWithPool(p pool, table string, clock content.Clock) (*TaskStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	t, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &TaskStore{pool: p, table: t, clock: clock}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "tasks"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *TaskStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateTask inserts a task row.
func (s *TaskStore) CreateTask(ctx context.Context, task content.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task id is required")
	}
	urls, err := json.Marshal(task.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	detected, err := json.Marshal(task.URLsDetected)
	if err != nil {
		return fmt.Errorf("marshal url analysis: %w", err)
	}
	platforms, err := json.Marshal(task.Platforms)
	if err != nil {
		return fmt.Errorf("marshal platforms: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	status,
	submitted_at,
	urls,
	urls_detected,
	platforms
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)
	if _, err := s.pool.Exec(ctx, query, task.ID, string(task.Status), task.Submitted, urls, detected, platforms); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTaskStatus advances a task along its lifecycle, stamping finished_at
// on terminal writes.
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, taskID string, status content.TaskStatus, errText string) error {
	current, err := s.currentStatus(ctx, taskID)
	if err != nil {
		return err
	}
	if !canTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", content.ErrInvalidTransition, current, status)
	}

	var finished *time.Time
	if status.IsTerminal() {
		now := s.clock.Now().UTC()
		finished = &now
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $2, error_text = $3, finished_at = $4 WHERE id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, taskID, string(status), errText, finished); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// SetTaskResult attaches the selected posts and scraper outcome lists.
func (s *TaskStore) SetTaskResult(ctx context.Context, taskID string, result []content.ScoredPost, successful, failed []string) error {
	current, err := s.currentStatus(ctx, taskID)
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", content.ErrInvalidTransition, taskID, current)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	successfulJSON, err := json.Marshal(successful)
	if err != nil {
		return fmt.Errorf("marshal successful scrapers: %w", err)
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshal failed scrapers: %w", err)
	}
	query := fmt.Sprintf(
		`UPDATE %s SET result = $2, successful_scrapers = $3, failed_scrapers = $4 WHERE id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, taskID, resultJSON, successfulJSON, failedJSON); err != nil {
		return fmt.Errorf("update task result: %w", err)
	}
	return nil
}

// GetTask fetches a task row by ID.
func (s *TaskStore) GetTask(ctx context.Context, taskID string) (content.Task, error) {
	query := fmt.Sprintf(`
SELECT
	id,
	status,
	submitted_at,
	finished_at,
	urls,
	urls_detected,
	platforms,
	result,
	successful_scrapers,
	failed_scrapers,
	error_text
FROM %s WHERE id = $1`, s.table)

	var task content.Task
	var status string
	var urls, detected, platforms, result, succJSON, failJSON []byte
	row := s.pool.QueryRow(ctx, query, taskID)
	err := row.Scan(&task.ID, &status, &task.Submitted, &task.Finished,
		&urls, &detected, &platforms, &result, &succJSON, &failJSON, &task.ErrorText)
	if errors.Is(err, pgx.ErrNoRows) {
		return content.Task{}, content.ErrTaskNotFound
	}
	if err != nil {
		return content.Task{}, fmt.Errorf("select task: %w", err)
	}
	task.Status = content.TaskStatus(status)
	for _, col := range []struct {
		data []byte
		dst  any
	}{
		{urls, &task.URLs},
		{detected, &task.URLsDetected},
		{platforms, &task.Platforms},
		{result, &task.Result},
		{succJSON, &task.SuccessfulScrapers},
		{failJSON, &task.FailedScrapers},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return content.Task{}, fmt.Errorf("decode task column: %w", err)
		}
	}
	return task, nil
}

func (s *TaskStore) currentStatus(ctx context.Context, taskID string) (content.TaskStatus, error) {
	query := fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, s.table)
	var status string
	err := s.pool.QueryRow(ctx, query, taskID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", content.ErrTaskNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select task status: %w", err)
	}
	return content.TaskStatus(status), nil
}

func canTransition(from, to content.TaskStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case content.TaskStatusProcessing:
		return from == content.TaskStatusStarted
	case content.TaskStatusCompleted, content.TaskStatusError:
		return true
	default:
		return false
	}
}
