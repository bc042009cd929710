package normalize

import (
	"strings"

	"github.com/socialpulse/content-engine/internal/content"
)

func twitterPost(item map[string]any) (content.NormalizedPost, bool) {
	if str(item, "content_type") == "thread" {
		return twitterThread(item)
	}
	return twitterTweet(item)
}

func twitterTweet(item map[string]any) (content.NormalizedPost, bool) {
	user := sub(item, "user")
	tweetURL := str(item, "tweet_url")
	text := str(item, "text")
	if text == "" {
		text = str(item, "full_text")
	}

	// The upstream payload spells the key "hastags".
	tags := hashtagList(item["hastags"])
	if tags == nil {
		tags = hashtagsFromText(text)
	}

	return content.NormalizedPost{
		Platform:    content.PlatformTwitter,
		ContentType: "tweet",
		MediaType:   mediaTypeOf(list(item, "media")),
		URL:         tweetURL,
		Text:        text,
		Stats:       tweetStats(item),
		Hashtags:    tags,
		Author: content.Author{
			Name:       str(user, "name"),
			Username:   str(user, "screen_name"),
			ProfileURL: profileURL(tweetURL, str(user, "screen_name")),
		},
	}, true
}

// twitterThread folds an ordered tweet list into one post: stats summed,
// texts joined, authored by the first tweet.
func twitterThread(item map[string]any) (content.NormalizedPost, bool) {
	tweets := list(item, "ordered_tweets")
	if len(tweets) == 0 {
		return content.NormalizedPost{}, false
	}

	combined := content.Stats{}
	var texts []string
	mediaType := "thread"
	for _, raw := range tweets {
		tweet, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for k, v := range tweetStats(tweet) {
			combined[k] += v
		}
		text := str(tweet, "text")
		if text == "" {
			text = str(tweet, "full_text")
		}
		if text != "" {
			texts = append(texts, text)
		}
		switch mediaTypeOf(list(tweet, "media")) {
		case "video":
			mediaType = "thread_with_videos"
		case "image":
			if mediaType == "thread" {
				mediaType = "thread_with_images"
			}
		}
	}

	first, _ := tweets[0].(map[string]any)
	user := sub(first, "user")
	mainURL := str(first, "tweet_url")

	return content.NormalizedPost{
		Platform:    content.PlatformTwitter,
		ContentType: "thread",
		MediaType:   mediaType,
		URL:         mainURL,
		Text:        strings.Join(texts, " "),
		Stats:       combined,
		Hashtags:    hashtagsFromText(strings.Join(texts, " ")),
		Author: content.Author{
			Name:       str(user, "name"),
			Username:   str(user, "screen_name"),
			ProfileURL: profileURL(mainURL, str(user, "screen_name")),
		},
	}, true
}

func tweetStats(item map[string]any) content.Stats {
	return content.Stats{
		"views":    num(item, "view_count"),
		"likes":    num(item, "favorite_count"),
		"retweets": num(item, "retweet_count"),
		"replies":  num(item, "reply_count"),
		"quotes":   num(item, "quote_count"),
	}
}

func mediaTypeOf(media []any) string {
	mediaType := "text"
	for _, raw := range media {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch str(m, "type") {
		case "video":
			return "video"
		case "photo":
			mediaType = "image"
		}
	}
	return mediaType
}

// profileURL derives the author page from a tweet URL, falling back to the
// screen name.
func profileURL(tweetURL, screenName string) string {
	if i := strings.Index(tweetURL, "/status/"); i > 0 {
		return tweetURL[:i]
	}
	if screenName != "" {
		return "https://x.com/" + screenName
	}
	return ""
}
