// Package unroll detects twitter threads through unrollnow.com, which renders
// a whole thread on one page.
package unroll

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	baseURL   = "https://unrollnow.com/status/"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// maxThreadLength caps how many tweet ids one thread can contribute.
	maxThreadLength = 25
)

var (
	dataTweetIDPattern = regexp.MustCompile(`data-tweet-id="(\d{18,19})"`)
	quotedPattern      = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*quote[^"]*"[^>]*>.*?(\d{18,19})`)
)

// Client fetches unrollnow pages and extracts the ids of the tweets that make
// up a thread.
type Client struct {
	collector *colly.Collector
	log       *zap.Logger
}

func New(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(10 * time.Second)
	return &Client{collector: c, log: log}
}

// ThreadIDs returns the ordered tweet ids of the thread rooted at tweetID,
// restricted to the given author. A single-element or empty result means no
// thread.
func (c *Client) ThreadIDs(ctx context.Context, tweetID, username string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var html string
	collector := c.collector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})
	if err := collector.Visit(baseURL + tweetID); err != nil {
		return nil, fmt.Errorf("fetching unroll page for %s: %w", tweetID, err)
	}
	collector.Wait()

	ids := ExtractThreadIDs(html, username)
	c.log.Debug("unroll lookup",
		zap.String("tweet_id", tweetID),
		zap.String("username", username),
		zap.Int("thread_ids", len(ids)))
	return ids, nil
}

// ExtractThreadIDs pulls the author's tweet ids out of an unrollnow page,
// dropping ids that only appear inside quote-tweet containers. Order follows
// the page, which renders the thread top to bottom.
func ExtractThreadIDs(html, username string) []string {
	if html == "" {
		return nil
	}

	var ids []string
	if username != "" {
		hrefPattern := regexp.MustCompile(`(?i)href="/` + regexp.QuoteMeta(username) + `/status/(\d{18,19})"`)
		for _, m := range hrefPattern.FindAllStringSubmatch(html, -1) {
			ids = append(ids, m[1])
		}
	}
	for _, m := range dataTweetIDPattern.FindAllStringSubmatch(html, -1) {
		ids = append(ids, m[1])
	}

	quoted := make(map[string]bool)
	for _, m := range quotedPattern.FindAllStringSubmatch(html, -1) {
		quoted[m[1]] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, id := range ids {
		if quoted[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == maxThreadLength {
			break
		}
	}
	return out
}
