package apify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/content"
)

// Actor ids on the Apify platform, one per supported source.
const (
	actorInstagramReels = "apify~instagram-reel-scraper"
	actorYouTubeChannel = "streamers~youtube-channel-scraper"
	actorLinkedInPosts  = "supreme_coder~linkedin-post"
	actorTwitterTweets  = "scrape.badger~twitter-tweets-scraper"
	actorTikTokProfile  = "clockworks~tiktok-scraper"
)

const (
	// lookbackWindow bounds how far back each scrape reaches.
	lookbackWindow = 7 * 24 * time.Hour

	// resultsPerTarget keeps the raw pool large enough for selection without
	// paying for full-history runs.
	resultsPerTarget = 50

	maxTweetsPerTarget = 10
)

// ThreadFinder reports the ordered tweet ids of the thread a tweet belongs
// to. An empty or single-id answer means the tweet stands alone.
type ThreadFinder interface {
	ThreadIDs(ctx context.Context, tweetID, username string) ([]string, error)
}

// Scraper implements content.Scraper on top of Apify actors. One Scrape call
// handles every target of a single platform; targets fail independently and
// a platform run only errors when no target yields data.
type Scraper struct {
	client  *Client
	threads ThreadFinder
	clock   content.Clock
	log     *zap.Logger
}

func NewScraper(client *Client, threads ThreadFinder, clock content.Clock, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{client: client, threads: threads, clock: clock, log: log}
}

func (s *Scraper) Scrape(ctx context.Context, platform content.Platform, targets []content.Target) ([]content.RawItem, error) {
	var (
		items []content.RawItem
		errs  []error
	)
	for _, target := range targets {
		got, err := s.scrapeTarget(ctx, platform, target)
		if err != nil {
			s.log.Warn("target scrape failed",
				zap.String("platform", string(platform)),
				zap.String("url", target.URL),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", target.URL, err))
			continue
		}
		items = append(items, got...)
	}
	if len(items) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

func (s *Scraper) scrapeTarget(ctx context.Context, platform content.Platform, target content.Target) ([]content.RawItem, error) {
	switch platform {
	case content.PlatformInstagram:
		return s.runTagged(ctx, actorInstagramReels, map[string]any{
			"username":           []string{target.URL},
			"resultsLimit":       resultsPerTarget,
			"onlyPostsNewerThan": "7 days",
		}, target.URL)
	case content.PlatformYouTube:
		return s.runTagged(ctx, actorYouTubeChannel, map[string]any{
			"startUrls":        []map[string]string{{"url": target.URL}},
			"maxResults":       resultsPerTarget,
			"maxResultsShorts": resultsPerTarget,
			"maxResultStreams": 0,
			"oldestPostDate":   s.windowStart(),
			"sortVideosBy":     "NEWEST",
		}, target.URL)
	case content.PlatformLinkedIn:
		return s.runTagged(ctx, actorLinkedInPosts, map[string]any{
			"urls":           []string{target.URL},
			"limitPerSource": resultsPerTarget,
			"scrapeUntil":    s.windowStart(),
		}, target.URL)
	case content.PlatformTikTok:
		return s.runTagged(ctx, actorTikTokProfile, map[string]any{
			"profiles":        []string{target.Handle},
			"resultsPerPage":  resultsPerTarget,
			"oldestPostDate":  s.windowStart(),
			"shouldDownload":  false,
			"profileSorting":  "latest",
		}, target.URL)
	case content.PlatformTwitter:
		return s.scrapeTwitter(ctx, target)
	default:
		return nil, content.ErrPlatformUnsupported
	}
}

// runTagged runs an actor and stamps every item with the originating URL so
// downstream stages can group by submission.
func (s *Scraper) runTagged(ctx context.Context, actorID string, input map[string]any, urlGroup string) ([]content.RawItem, error) {
	raw, err := s.client.RunSync(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	items := make([]content.RawItem, 0, len(raw))
	for _, data := range raw {
		items = append(items, content.RawItem{URLGroup: urlGroup, Data: data})
	}
	return items, nil
}

// scrapeTwitter searches the author's recent tweets, then expands each into
// a thread when the unroll service reports one.
func (s *Scraper) scrapeTwitter(ctx context.Context, target content.Target) ([]content.RawItem, error) {
	now := s.clock.Now()
	query := fmt.Sprintf("from:%s -filter:replies since:%s until:%s",
		target.Handle,
		now.Add(-lookbackWindow).Format("2006-01-02"),
		now.Format("2006-01-02"))

	tweets, err := s.client.RunSync(ctx, actorTwitterTweets, map[string]any{
		"mode":        "Advanced Search",
		"query":       query,
		"query_type":  "Latest",
		"max_results": maxTweetsPerTarget,
	})
	if err != nil {
		return nil, err
	}

	var items []content.RawItem
	for _, tweet := range tweets {
		id, _ := tweet["id"].(string)
		if screenName := userScreenName(tweet); screenName != "" && id != "" {
			tweet["tweet_url"] = "https://x.com/" + screenName + "/status/" + id
		}
		// Tweets the search sweeps in from other accounts are noise.
		if sn := userScreenName(tweet); sn != "" && !strings.EqualFold(sn, target.Handle) {
			continue
		}

		item := s.classifyTweet(ctx, tweet, id, target.Handle)
		item.URLGroup = target.URL
		items = append(items, item)
	}
	return items, nil
}

// classifyTweet turns a raw search hit into either a plain tweet item or a
// folded thread item. Thread expansion failures degrade to a plain tweet.
func (s *Scraper) classifyTweet(ctx context.Context, tweet map[string]any, id, handle string) content.RawItem {
	tweet["content_type"] = "tweet"
	if id == "" || s.threads == nil {
		return content.RawItem{Data: tweet}
	}

	threadIDs, err := s.threads.ThreadIDs(ctx, id, handle)
	if err != nil || len(threadIDs) < 2 {
		if err != nil {
			s.log.Debug("thread lookup failed, keeping single tweet",
				zap.String("tweet_id", id), zap.Error(err))
		}
		return content.RawItem{Data: tweet}
	}

	ordered, err := s.fetchThread(ctx, threadIDs, handle)
	if err != nil || len(ordered) == 0 {
		if err != nil {
			s.log.Debug("thread fetch failed, keeping single tweet",
				zap.String("tweet_id", id), zap.Error(err))
		}
		return content.RawItem{Data: tweet}
	}
	return content.RawItem{Data: map[string]any{
		"content_type":   "thread",
		"thread_id":      id,
		"thread_length":  len(ordered),
		"ordered_tweets": ordered,
	}}
}

// fetchThread pulls the listed tweet ids in one actor run and returns them
// in thread order, dropping quote tweets and other authors.
func (s *Scraper) fetchThread(ctx context.Context, threadIDs []string, handle string) ([]any, error) {
	raw, err := s.client.RunSync(ctx, actorTwitterTweets, map[string]any{
		"mode":        "Get a Few Tweets",
		"tweets":      strings.Join(threadIDs, ","),
		"max_results": len(threadIDs),
	})
	if err != nil {
		return nil, err
	}

	position := make(map[string]int, len(threadIDs))
	for i, id := range threadIDs {
		position[id] = i
	}

	ordered := make([]any, len(threadIDs))
	for _, tweet := range raw {
		if quoted, _ := tweet["is_quote_status"].(bool); quoted {
			continue
		}
		if sn := userScreenName(tweet); !strings.EqualFold(sn, handle) {
			continue
		}
		id, _ := tweet["id"].(string)
		i, ok := position[id]
		if !ok {
			continue
		}
		if sn := userScreenName(tweet); sn != "" {
			tweet["tweet_url"] = "https://x.com/" + sn + "/status/" + id
		}
		ordered[i] = tweet
	}

	out := make([]any, 0, len(ordered))
	for _, t := range ordered {
		if t != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Scraper) windowStart() string {
	return s.clock.Now().Add(-lookbackWindow).Format("2006-01-02")
}

func userScreenName(tweet map[string]any) string {
	user, _ := tweet["user"].(map[string]any)
	if user == nil {
		return ""
	}
	sn, _ := user["screen_name"].(string)
	return sn
}
