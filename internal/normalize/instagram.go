package normalize

import "github.com/socialpulse/content-engine/internal/content"

// instagramPost maps one instagram reel item. The reel scraper also returns
// images and sidecars; only video items make it into the pool.
func instagramPost(item map[string]any) (content.NormalizedPost, bool) {
	if str(item, "type") != "Video" {
		return content.NormalizedPost{}, false
	}

	views := num(item, "videoViewCount")
	if views == 0 {
		views = num(item, "videoPlayCount")
	}

	username := str(item, "ownerUsername")
	author := content.Author{
		Name:     str(item, "ownerFullName"),
		Username: username,
	}
	if username != "" {
		author.ProfileURL = "https://instagram.com/" + username
	}

	caption := str(item, "caption")
	tags := hashtagList(item["hashtags"])
	if tags == nil {
		tags = hashtagsFromText(caption)
	}

	return content.NormalizedPost{
		Platform:    content.PlatformInstagram,
		ContentType: "post",
		MediaType:   "video",
		URL:         str(item, "url"),
		Text:        caption,
		Stats: content.Stats{
			"views":    views,
			"likes":    num(item, "likesCount"),
			"comments": num(item, "commentsCount"),
		},
		Hashtags: tags,
		Author:   author,
	}, true
}
