package content

import (
	"context"
	"time"
)

// TaskStore persists task records. Implementations must be safe for
// concurrent polling reads alongside the single pipeline writer, and must
// reject writes to terminal tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task Task) error
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, errText string) error
	SetTaskResult(ctx context.Context, taskID string, result []ScoredPost, successful, failed []string) error
	GetTask(ctx context.Context, taskID string) (Task, error)
}

// Scraper runs one platform's scrape job over all of that platform's targets.
type Scraper interface {
	Scrape(ctx context.Context, platform Platform, targets []Target) ([]RawItem, error)
}

// BlobStore writes JSON artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes task lifecycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for submitted tasks.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task IDs.
type IDGenerator interface {
	NewID() (string, error)
}
