package scrape

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/content"
	"github.com/socialpulse/content-engine/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type stubScraper struct {
	fail  map[content.Platform]error
	block map[content.Platform]bool
}

func (s stubScraper) Scrape(ctx context.Context, platform content.Platform, targets []content.Target) ([]content.RawItem, error) {
	if s.block[platform] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := s.fail[platform]; err != nil {
		return nil, err
	}
	items := make([]content.RawItem, len(targets))
	for i, target := range targets {
		items[i] = content.RawItem{URLGroup: target.URL, Data: map[string]any{"url": target.URL}}
	}
	return items, nil
}

func TestInvokerRunKeepsJobOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	scraper := stubScraper{fail: map[content.Platform]error{
		content.PlatformLinkedIn: errors.New("actor exploded"),
	}}
	inv := NewInvoker(scraper, time.Minute, 0, zap.NewNop())

	jobs := []Job{
		{Platform: content.PlatformTwitter, Targets: []content.Target{{URL: "https://x.com/a"}}},
		{Platform: content.PlatformLinkedIn, Targets: []content.Target{{URL: "https://linkedin.com/in/b"}}},
		{Platform: content.PlatformYouTube, Targets: []content.Target{{URL: "https://youtube.com/@c"}}},
	}
	results := inv.Run(context.Background(), jobs)
	require.Len(t, results, 3)

	require.Equal(t, content.PlatformTwitter, results[0].Platform)
	require.True(t, results[0].OK)
	require.Len(t, results[0].Items, 1)

	require.Equal(t, content.PlatformLinkedIn, results[1].Platform)
	require.False(t, results[1].OK)
	require.Contains(t, results[1].ErrorText, "actor exploded")

	require.True(t, results[2].OK)
	require.False(t, AllFailed(results))
}

func TestInvokerRunTimesOutSlowPlatform(t *testing.T) {
	t.Parallel()

	scraper := stubScraper{block: map[content.Platform]bool{content.PlatformInstagram: true}}
	inv := NewInvoker(scraper, 20*time.Millisecond, 0, zap.NewNop())

	results := inv.Run(context.Background(), []Job{
		{Platform: content.PlatformInstagram, Targets: []content.Target{{URL: "https://instagram.com/a"}}},
		{Platform: content.PlatformTikTok, Targets: []content.Target{{URL: "https://tiktok.com/@b"}}},
	})
	require.False(t, results[0].OK)
	require.Contains(t, results[0].ErrorText, "deadline")
	require.True(t, results[1].OK)
}

func TestAllFailed(t *testing.T) {
	t.Parallel()

	require.True(t, AllFailed(nil))
	require.True(t, AllFailed([]content.RawScrapeResult{{OK: false}, {OK: false}}))
	require.False(t, AllFailed([]content.RawScrapeResult{{OK: false}, {OK: true}}))
}

func TestPartition(t *testing.T) {
	t.Parallel()

	analysis := []content.URLAnalysis{
		{URL: "https://x.com/a", Platform: content.PlatformTwitter, Username: "a"},
		{URL: "https://example.com/x", Platform: content.PlatformUnknown},
		{URL: "https://tiktok.com/@b", Platform: content.PlatformTikTok, Username: "b"},
		{URL: "https://x.com/c", Platform: content.PlatformTwitter, Username: "c"},
	}
	jobs := Partition(analysis)
	require.Len(t, jobs, 2)
	require.Equal(t, content.PlatformTwitter, jobs[0].Platform)
	require.Equal(t, []content.Target{
		{URL: "https://x.com/a", Handle: "a"},
		{URL: "https://x.com/c", Handle: "c"},
	}, jobs[0].Targets)
	require.Equal(t, content.PlatformTikTok, jobs[1].Platform)

	require.Empty(t, Partition(nil))
	require.Empty(t, Partition([]content.URLAnalysis{{Platform: content.PlatformUnknown}}))
}
