package normalize

import (
	"strings"

	"github.com/socialpulse/content-engine/internal/content"
)

func linkedinPost(item map[string]any) (content.NormalizedPost, bool) {
	mediaType := "text"
	switch {
	case str(item, "type") == "linkedinVideo":
		mediaType = "video"
	case len(list(item, "images")) > 0:
		mediaType = "image"
	}

	text := str(item, "text")

	raw := sub(item, "author")
	name := strings.TrimSpace(str(raw, "firstName") + " " + str(raw, "lastName"))
	profileURL := str(raw, "profileUrl")
	if profileURL == "" {
		profileURL = str(item, "authorProfileUrl")
	}
	author := content.Author{
		Name:       name,
		Username:   str(raw, "publicId"),
		ProfileURL: profileURL,
	}

	return content.NormalizedPost{
		Platform:    content.PlatformLinkedIn,
		ContentType: "post",
		MediaType:   mediaType,
		URL:         str(item, "url"),
		Text:        text,
		Stats: content.Stats{
			"likes":    num(item, "numLikes"),
			"comments": num(item, "numComments"),
			"shares":   num(item, "numShares"),
		},
		Hashtags: hashtagsFromText(text),
		Author:   author,
	}, true
}
