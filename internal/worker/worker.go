// Package worker implements the task execution pipeline.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/content"
	"github.com/socialpulse/content-engine/internal/metrics"
	"github.com/socialpulse/content-engine/internal/normalize"
	"github.com/socialpulse/content-engine/internal/scrape"
	"github.com/socialpulse/content-engine/internal/selection"
)

// Config controls Worker behavior.
type Config struct {
	// Topic is the completion-event topic; empty disables publishing.
	Topic string

	// BlobPrefix is the artifact path prefix, "tasks" by default.
	BlobPrefix string

	// SelectionTarget is the desired number of selected posts.
	SelectionTarget int

	// NormalizeTimeout bounds the normalization stage.
	NormalizeTimeout time.Duration
}

// Worker consumes queue items and runs the scrape, normalize and select
// pipeline to a terminal task status.
type Worker struct {
	queue      content.Queue
	taskStore  content.TaskStore
	blobStore  content.BlobStore
	publisher  content.Publisher
	invoker    *scrape.Invoker
	normalizer *normalize.Normalizer
	clock      content.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	queue content.Queue,
	taskStore content.TaskStore,
	blobStore content.BlobStore,
	publisher content.Publisher,
	invoker *scrape.Invoker,
	normalizer *normalize.Normalizer,
	clock content.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BlobPrefix == "" {
		cfg.BlobPrefix = "tasks"
	}
	if cfg.SelectionTarget <= 0 {
		cfg.SelectionTarget = selection.DefaultTarget
	}
	if cfg.NormalizeTimeout <= 0 {
		cfg.NormalizeTimeout = 2 * time.Minute
	}
	return &Worker{
		queue:      queue,
		taskStore:  taskStore,
		blobStore:  blobStore,
		publisher:  publisher,
		invoker:    invoker,
		normalizer: normalizer,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued task", zap.String("task_id", item.TaskID))
		metrics.IncActiveWorkers()
		w.processTask(ctx, item)
		metrics.DecActiveWorkers()
	}
}

func (w *Worker) processTask(ctx context.Context, item content.QueueItem) {
	if err := w.taskStore.UpdateTaskStatus(ctx, item.TaskID, content.TaskStatusProcessing, ""); err != nil {
		w.logger.Error("update task status failed", zap.String("task_id", item.TaskID), zap.Error(err))
		return
	}

	jobs := scrape.Partition(item.Analysis)
	if len(jobs) == 0 {
		w.finish(ctx, item.TaskID, content.TaskStatusError, "no supported platforms in submitted urls", 0)
		return
	}

	results := w.invoker.Run(ctx, jobs)
	successful, failed := scraperOutcomes(results)

	if scrape.AllFailed(results) {
		errText := fmt.Sprintf("%s: %s", content.ErrAllScrapersFailed, strings.Join(failed, ", "))
		if err := w.taskStore.SetTaskResult(ctx, item.TaskID, nil, successful, failed); err != nil {
			w.logger.Error("set task result failed", zap.String("task_id", item.TaskID), zap.Error(err))
		}
		w.finish(ctx, item.TaskID, content.TaskStatusError, errText, 0)
		return
	}

	pool := w.normalizePool(ctx, item, results)
	w.putArtifact(ctx, item.TaskID, "normalized.json", pool)

	selected := selection.Select(pool, w.cfg.SelectionTarget)
	w.putArtifact(ctx, item.TaskID, "result.json", selected)

	if err := w.taskStore.SetTaskResult(ctx, item.TaskID, selected, successful, failed); err != nil {
		w.logger.Error("set task result failed", zap.String("task_id", item.TaskID), zap.Error(err))
		w.finish(ctx, item.TaskID, content.TaskStatusError, "failed to persist result", 0)
		return
	}

	w.logger.Info("task pipeline finished",
		zap.String("task_id", item.TaskID),
		zap.Int("pool", len(pool)),
		zap.Int("selected", len(selected)),
		zap.Strings("successful", successful),
		zap.Strings("failed", failed))
	w.finish(ctx, item.TaskID, content.TaskStatusCompleted, "", len(selected))
}

// normalizePool flattens the scrape results under the normalize timeout and
// reorders the pool so groups follow URL submission order.
func (w *Worker) normalizePool(ctx context.Context, item content.QueueItem, results []content.RawScrapeResult) []content.NormalizedPost {
	normCtx, cancel := context.WithTimeout(ctx, w.cfg.NormalizeTimeout)
	defer cancel()

	pool := w.normalizer.Normalize(normCtx, results)

	position := make(map[string]int, len(item.URLs))
	for i, url := range item.URLs {
		position[url] = i
	}
	sort.SliceStable(pool, func(a, b int) bool {
		pa, oka := position[pool[a].URLGroup]
		pb, okb := position[pool[b].URLGroup]
		if oka != okb {
			return oka
		}
		return pa < pb
	})
	return pool
}

// finish writes the terminal status and emits the completion event.
func (w *Worker) finish(ctx context.Context, taskID string, status content.TaskStatus, errText string, selected int) {
	if err := w.taskStore.UpdateTaskStatus(ctx, taskID, status, errText); err != nil {
		w.logger.Error("final task status update failed", zap.String("task_id", taskID), zap.Error(err))
	}
	metrics.ObserveTask(string(status))
	if status == content.TaskStatusCompleted {
		metrics.ObserveSelection(selected)
	}
	w.publishEvent(ctx, taskID, status, errText, selected)
}

func (w *Worker) publishEvent(ctx context.Context, taskID string, status content.TaskStatus, errText string, selected int) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	payload := map[string]any{
		"task_id":        taskID,
		"status":         string(status),
		"selected_posts": selected,
		"timestamp":      w.clock.Now().Format(time.RFC3339),
	}
	if errText != "" {
		payload["error"] = errText
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		w.logger.Warn("completion event publish failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

// putArtifact persists a JSON artifact under the task's blob prefix.
// Artifact failures are logged, not fatal; the task result lives in the
// task store.
func (w *Worker) putArtifact(ctx context.Context, taskID, name string, payload any) {
	if w.blobStore == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		w.logger.Warn("artifact marshal failed", zap.String("task_id", taskID), zap.String("artifact", name), zap.Error(err))
		return
	}
	path := fmt.Sprintf("%s/%s/%s", strings.Trim(w.cfg.BlobPrefix, "/"), taskID, name)
	uri, err := w.blobStore.PutObject(ctx, path, "application/json", data)
	if err != nil {
		w.logger.Warn("artifact write failed", zap.String("task_id", taskID), zap.String("artifact", name), zap.Error(err))
		return
	}
	w.logger.Debug("artifact written", zap.String("task_id", taskID), zap.String("uri", uri))
}

// scraperOutcomes splits the platform results into successful and failed
// platform names, preserving job order.
func scraperOutcomes(results []content.RawScrapeResult) (successful, failed []string) {
	for _, r := range results {
		if r.OK {
			successful = append(successful, string(r.Platform))
		} else {
			failed = append(failed, string(r.Platform))
		}
	}
	return successful, failed
}
