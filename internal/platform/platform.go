// Package platform classifies social-media URLs and extracts account handles.
package platform

import (
	"regexp"
	"strings"

	"github.com/socialpulse/content-engine/internal/content"
)

var usernamePatterns = map[content.Platform]*regexp.Regexp{
	content.PlatformInstagram: regexp.MustCompile(`instagram\.com/([^/?]+)`),
	content.PlatformLinkedIn:  regexp.MustCompile(`linkedin\.com/(?:in|company)/([^/?]+)`),
	content.PlatformTwitter:   regexp.MustCompile(`(?:twitter|x)\.com/([^/?]+)`),
	content.PlatformYouTube:   regexp.MustCompile(`youtube\.com/(?:c/|@|channel/|user/)([^/?]+)`),
	content.PlatformTikTok:    regexp.MustCompile(`tiktok\.com/@([^/?]+)`),
}

// Detect maps a URL to its platform by domain substring. Unsupported domains
// return PlatformUnknown with ErrPlatformUnsupported.
func Detect(url string) (content.Platform, error) {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "instagram.com"):
		return content.PlatformInstagram, nil
	case strings.Contains(lower, "linkedin.com"):
		return content.PlatformLinkedIn, nil
	case strings.Contains(lower, "twitter.com"), strings.Contains(lower, "x.com"):
		return content.PlatformTwitter, nil
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return content.PlatformYouTube, nil
	case strings.Contains(lower, "tiktok.com"):
		return content.PlatformTikTok, nil
	default:
		return content.PlatformUnknown, content.ErrPlatformUnsupported
	}
}

// Username extracts the account handle from a platform URL. Returns "" when
// the URL carries no recognizable handle.
func Username(url string, platform content.Platform) string {
	re, ok := usernamePatterns[platform]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Analyze classifies every URL in a batch, preserving submission order.
// Unsupported URLs are kept in the result with PlatformUnknown; they are
// recorded, not fatal.
func Analyze(urls []string) []content.URLAnalysis {
	out := make([]content.URLAnalysis, 0, len(urls))
	for i, url := range urls {
		p, err := Detect(url)
		a := content.URLAnalysis{
			Index:    i + 1,
			URL:      url,
			Platform: p,
			Status:   "pending",
		}
		if err == nil {
			a.Username = Username(url, p)
		}
		out = append(out, a)
	}
	return out
}

// Needed returns the distinct supported platforms present in an analysis,
// in first-seen order.
func Needed(analysis []content.URLAnalysis) []content.Platform {
	seen := make(map[content.Platform]bool)
	var out []content.Platform
	for _, a := range analysis {
		if a.Platform == content.PlatformUnknown || seen[a.Platform] {
			continue
		}
		seen[a.Platform] = true
		out = append(out, a.Platform)
	}
	return out
}
