package normalize

import "github.com/socialpulse/content-engine/internal/content"

func tiktokPost(item map[string]any) (content.NormalizedPost, bool) {
	url := str(item, "webVideoUrl")
	if url == "" {
		url = str(item, "videoUrl")
	}

	meta := sub(item, "authorMeta")
	author := content.Author{
		Name:       str(meta, "nickName"),
		Username:   str(meta, "name"),
		ProfileURL: str(meta, "profileUrl"),
	}

	return content.NormalizedPost{
		Platform:    content.PlatformTikTok,
		ContentType: "video",
		MediaType:   "video",
		URL:         url,
		Text:        str(item, "text"),
		Stats: content.Stats{
			"views":    num(item, "playCount"),
			"likes":    num(item, "diggCount"),
			"comments": num(item, "commentCount"),
			"shares":   num(item, "shareCount"),
		},
		Hashtags: hashtagList(item["hashtags"]),
		Author:   author,
	}, true
}
