package normalize

import (
	"strconv"
	"strings"

	"github.com/socialpulse/content-engine/internal/content"
)

// shortMaxSeconds is the cutoff separating Shorts from regular uploads.
const shortMaxSeconds = 60

func youtubePost(item map[string]any) (content.NormalizedPost, bool) {
	url := str(item, "url")
	title := str(item, "title")
	description := str(item, "description")

	mediaType := "video"
	if secs, ok := durationSeconds(str(item, "duration")); ok && secs <= shortMaxSeconds {
		mediaType = "short"
	}

	return content.NormalizedPost{
		Platform:    content.PlatformYouTube,
		ContentType: "video",
		MediaType:   mediaType,
		URL:         url,
		Text:        title,
		Stats: content.Stats{
			"views":    num(item, "viewCount"),
			"likes":    num(item, "likeCount"),
			"comments": num(item, "commentCount"),
		},
		Hashtags: hashtagsFromText(title + " " + description),
		Author: content.Author{
			Name:       str(item, "channelName"),
			Username:   str(item, "channelHandle"),
			ProfileURL: str(item, "channelUrl"),
		},
	}, true
}

// durationSeconds parses the ISO-8601 durations the channel scraper emits,
// e.g. PT1M30S or PT45S. Hours never matter here; anything with an hour part
// is not a Short.
func durationSeconds(d string) (int, bool) {
	if !strings.HasPrefix(d, "PT") {
		return 0, false
	}
	rest := strings.TrimPrefix(d, "PT")
	if strings.Contains(rest, "H") {
		return shortMaxSeconds + 1, true
	}
	total := 0
	if i := strings.Index(rest, "M"); i >= 0 {
		mins, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, false
		}
		total += mins * 60
		rest = rest[i+1:]
	}
	if i := strings.Index(rest, "S"); i >= 0 {
		secs, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, false
		}
		total += secs
	}
	return total, true
}
