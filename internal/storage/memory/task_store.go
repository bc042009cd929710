// Package memory provides in-memory stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/socialpulse/content-engine/internal/content"
)

// TaskStore keeps tasks in a mutex-guarded map. Status writes enforce the
// started -> processing -> terminal lifecycle; terminal tasks never change
// again.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]content.Task
	clock content.Clock
}

// NewTaskStore constructs a TaskStore.
func NewTaskStore(clock content.Clock) *TaskStore {
	return &TaskStore{
		tasks: make(map[string]content.Task),
		clock: clock,
	}
}

// CreateTask stores a new task.
func (s *TaskStore) CreateTask(_ context.Context, task content.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	s.tasks[task.ID] = task
	return nil
}

// UpdateTaskStatus advances a task along its lifecycle. Invalid transitions,
// including any write to a terminal task, return ErrInvalidTransition.
func (s *TaskStore) UpdateTaskStatus(_ context.Context, taskID string, status content.TaskStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return content.ErrTaskNotFound
	}
	if !canTransition(task.Status, status) {
		return fmt.Errorf("%w: %s -> %s", content.ErrInvalidTransition, task.Status, status)
	}
	task.Status = status
	task.ErrorText = errText
	if status.IsTerminal() {
		task.Finished = pointerTime(s.clock.Now().UTC())
	}
	s.tasks[taskID] = task
	return nil
}

// SetTaskResult attaches the selected posts and scraper outcome lists to a
// task. Results only land on live tasks.
func (s *TaskStore) SetTaskResult(_ context.Context, taskID string, result []content.ScoredPost, successful, failed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return content.ErrTaskNotFound
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", content.ErrInvalidTransition, taskID, task.Status)
	}
	task.Result = append([]content.ScoredPost(nil), result...)
	task.SuccessfulScrapers = append([]string(nil), successful...)
	task.FailedScrapers = append([]string(nil), failed...)
	s.tasks[taskID] = task
	return nil
}

// GetTask fetches a task by ID. The returned value is a copy; callers cannot
// mutate stored state through it.
func (s *TaskStore) GetTask(_ context.Context, taskID string) (content.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return content.Task{}, content.ErrTaskNotFound
	}
	return copyTask(task), nil
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

func copyTask(task content.Task) content.Task {
	out := task
	if task.Finished != nil {
		out.Finished = pointerTime(*task.Finished)
	}
	out.URLs = append([]string(nil), task.URLs...)
	out.URLsDetected = append([]content.URLAnalysis(nil), task.URLsDetected...)
	out.Platforms = append([]content.Platform(nil), task.Platforms...)
	out.Result = append([]content.ScoredPost(nil), task.Result...)
	out.SuccessfulScrapers = append([]string(nil), task.SuccessfulScrapers...)
	out.FailedScrapers = append([]string(nil), task.FailedScrapers...)
	return out
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
