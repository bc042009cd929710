// Package normalize flattens raw scraper payloads into the common post shape.
package normalize

import (
	"context"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/content"
)

// Normalizer converts raw per-platform items into NormalizedPosts. Items that
// cannot be mapped are dropped and logged, never fatal.
type Normalizer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// Normalize maps every item in the scrape results to the common shape,
// preserving result order. Failed platform results carry no items and are
// skipped. The context bounds the whole pass.
func (n *Normalizer) Normalize(ctx context.Context, results []content.RawScrapeResult) []content.NormalizedPost {
	pool := make([]content.NormalizedPost, 0)
	for _, res := range results {
		if ctx.Err() != nil {
			n.log.Warn("normalization cut short", zap.Error(ctx.Err()), zap.Int("normalized", len(pool)))
			return pool
		}
		if !res.OK {
			continue
		}
		for _, item := range res.Items {
			post, ok := n.one(res.Platform, item)
			if !ok {
				n.log.Debug("dropped raw item",
					zap.String("platform", string(res.Platform)),
					zap.String("url_group", item.URLGroup))
				continue
			}
			pool = append(pool, post)
		}
	}
	return pool
}

func (n *Normalizer) one(platform content.Platform, item content.RawItem) (content.NormalizedPost, bool) {
	if item.URLGroup == "" || item.Data == nil {
		return content.NormalizedPost{}, false
	}
	var (
		post content.NormalizedPost
		ok   bool
	)
	switch platform {
	case content.PlatformInstagram:
		post, ok = instagramPost(item.Data)
	case content.PlatformTikTok:
		post, ok = tiktokPost(item.Data)
	case content.PlatformLinkedIn:
		post, ok = linkedinPost(item.Data)
	case content.PlatformTwitter:
		post, ok = twitterPost(item.Data)
	case content.PlatformYouTube:
		post, ok = youtubePost(item.Data)
	default:
		return content.NormalizedPost{}, false
	}
	if !ok || post.URL == "" {
		return content.NormalizedPost{}, false
	}
	post.URLGroup = item.URLGroup
	return post, true
}

// str reads a string field, coercing scalars the way scraper payloads need.
func str(item map[string]any, key string) string {
	v, ok := item[key]
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// num reads a numeric field as int. Strings like "1234" coerce; anything
// non-numeric reads as zero.
func num(item map[string]any, key string) int {
	v, ok := item[key]
	if !ok {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return n
}

func sub(item map[string]any, key string) map[string]any {
	m, _ := item[key].(map[string]any)
	return m
}

func list(item map[string]any, key string) []any {
	l, _ := item[key].([]any)
	return l
}

// hashtagList accepts the two shapes scrapers emit: a list of strings, or a
// list of objects with a "name" field.
func hashtagList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var tags []string
	for _, it := range items {
		switch t := it.(type) {
		case string:
			if t != "" {
				tags = append(tags, strings.TrimPrefix(t, "#"))
			}
		case map[string]any:
			if name := str(t, "name"); name != "" {
				tags = append(tags, name)
			}
		}
	}
	return tags
}

// hashtagsFromText pulls #words out of free text, without the marker.
func hashtagsFromText(text string) []string {
	var tags []string
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "#") && len(word) > 1 {
			tags = append(tags, strings.Trim(word, "#"))
		}
	}
	return tags
}
