package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/content"
	"github.com/socialpulse/content-engine/internal/metrics"
	"github.com/socialpulse/content-engine/internal/normalize"
	pubmemory "github.com/socialpulse/content-engine/internal/publisher/memory"
	"github.com/socialpulse/content-engine/internal/scrape"
	"github.com/socialpulse/content-engine/internal/storage/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

// platformScraper serves canned tiktok items per target and fails the
// platforms listed in fail.
type platformScraper struct {
	fail map[content.Platform]bool
}

func (s platformScraper) Scrape(_ context.Context, platform content.Platform, targets []content.Target) ([]content.RawItem, error) {
	if s.fail[platform] {
		return nil, errors.New("actor run failed")
	}
	var items []content.RawItem
	for i, target := range targets {
		items = append(items, content.RawItem{
			URLGroup: target.URL,
			Data: map[string]any{
				"webVideoUrl": target.URL + "/video/" + target.Handle,
				"text":        "post",
				"playCount":   1000 * (i + 1),
				"authorMeta":  map[string]any{"name": target.Handle},
			},
		})
	}
	return items, nil
}

type fixture struct {
	worker    *Worker
	taskStore *memory.TaskStore
	blobStore *memory.BlobStore
	publisher *pubmemory.Publisher
}

func newFixture(t *testing.T, scraper content.Scraper) fixture {
	t.Helper()
	clock := fakeClock{now: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)}
	taskStore := memory.NewTaskStore(clock)
	blobStore := memory.NewBlobStore()
	publisher := pubmemory.New()
	w := New(
		nil,
		taskStore,
		blobStore,
		publisher,
		scrape.NewInvoker(scraper, time.Minute, 0, zap.NewNop()),
		normalize.New(zap.NewNop()),
		clock,
		Config{Topic: "task-events"},
		zap.NewNop(),
	)
	return fixture{worker: w, taskStore: taskStore, blobStore: blobStore, publisher: publisher}
}

func seedTask(t *testing.T, f fixture, id string, analysis []content.URLAnalysis) content.QueueItem {
	t.Helper()
	urls := make([]string, len(analysis))
	for i, a := range analysis {
		urls[i] = a.URL
	}
	require.NoError(t, f.taskStore.CreateTask(context.Background(), content.Task{
		ID:           id,
		Status:       content.TaskStatusStarted,
		URLs:         urls,
		URLsDetected: analysis,
	}))
	return content.QueueItem{TaskID: id, URLs: urls, Analysis: analysis}
}

func TestProcessTaskCompletesWithPartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, platformScraper{fail: map[content.Platform]bool{content.PlatformLinkedIn: true}})
	item := seedTask(t, f, "t1", []content.URLAnalysis{
		{Index: 1, URL: "https://tiktok.com/@a", Platform: content.PlatformTikTok, Username: "a"},
		{Index: 2, URL: "https://linkedin.com/in/b", Platform: content.PlatformLinkedIn, Username: "b"},
	})

	f.worker.processTask(context.Background(), item)

	task, err := f.taskStore.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, content.TaskStatusCompleted, task.Status)
	require.Equal(t, []string{"tiktok"}, task.SuccessfulScrapers)
	require.Equal(t, []string{"linkedin"}, task.FailedScrapers)
	require.NotEmpty(t, task.Result)
	require.Equal(t, "post_1", task.Result[0].PostNumber)
	require.NotNil(t, task.Finished)

	_, ok := f.blobStore.Object("tasks/t1/normalized.json")
	require.True(t, ok)
	resultJSON, ok := f.blobStore.Object("tasks/t1/result.json")
	require.True(t, ok)
	var stored []content.ScoredPost
	require.NoError(t, json.Unmarshal(resultJSON, &stored))
	require.Equal(t, task.Result, stored)

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 1)
	payload := msgs[0].Payload.(map[string]any)
	require.Equal(t, "t1", payload["task_id"])
	require.Equal(t, "completed", payload["status"])
}

func TestProcessTaskAllScrapersFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, platformScraper{fail: map[content.Platform]bool{
		content.PlatformTikTok:   true,
		content.PlatformLinkedIn: true,
	}})
	item := seedTask(t, f, "t1", []content.URLAnalysis{
		{Index: 1, URL: "https://tiktok.com/@a", Platform: content.PlatformTikTok, Username: "a"},
		{Index: 2, URL: "https://linkedin.com/in/b", Platform: content.PlatformLinkedIn, Username: "b"},
	})

	f.worker.processTask(context.Background(), item)

	task, err := f.taskStore.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, content.TaskStatusError, task.Status)
	require.Contains(t, task.ErrorText, "all scrapers failed")
	require.Empty(t, task.Result)
	require.Equal(t, []string{"tiktok", "linkedin"}, task.FailedScrapers)

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 1)
	payload := msgs[0].Payload.(map[string]any)
	require.Equal(t, "error", payload["status"])
}

func TestProcessTaskNoSupportedPlatforms(t *testing.T) {
	t.Parallel()

	f := newFixture(t, platformScraper{})
	item := seedTask(t, f, "t1", []content.URLAnalysis{
		{Index: 1, URL: "https://example.com/a", Platform: content.PlatformUnknown},
	})

	f.worker.processTask(context.Background(), item)

	task, err := f.taskStore.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, content.TaskStatusError, task.Status)
	require.Contains(t, task.ErrorText, "no supported platforms")
}

func TestProcessTaskGroupsFollowSubmissionOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, platformScraper{})
	item := seedTask(t, f, "t1", []content.URLAnalysis{
		{Index: 1, URL: "https://tiktok.com/@first", Platform: content.PlatformTikTok, Username: "first"},
		{Index: 2, URL: "https://tiktok.com/@second", Platform: content.PlatformTikTok, Username: "second"},
	})

	f.worker.processTask(context.Background(), item)

	task, err := f.taskStore.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, content.TaskStatusCompleted, task.Status)
	require.Len(t, task.Result, 2)
	require.Equal(t, "https://tiktok.com/@first", task.Result[0].URLGroup)
	require.Equal(t, "https://tiktok.com/@second", task.Result[1].URLGroup)
}
