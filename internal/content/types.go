// Package content defines core types shared across subsystems.
package content

import (
	"time"
)

// Platform identifies a supported social network.
type Platform string

// Platforms the classifier can detect.
const (
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformUnknown   Platform = "unknown"
)

// TaskStatus represents the lifecycle state of a processing task.
type TaskStatus string

// Task status values persisted in the task store. Transitions are monotonic:
// started -> processing -> {completed | error}.
const (
	TaskStatusStarted    TaskStatus = "started"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusError      TaskStatus = "error"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusError
}

// URLAnalysis is the per-URL classification row computed at submission time.
type URLAnalysis struct {
	Index    int      `json:"index"`
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	Username string   `json:"username"`
	Status   string   `json:"status"`
}

// Task represents the metadata persisted for each submitted batch.
type Task struct {
	ID                 string        `json:"task_id"`
	Status             TaskStatus    `json:"status"`
	Submitted          time.Time     `json:"started_at"`
	Finished           *time.Time    `json:"completed_at,omitempty"`
	URLs               []string      `json:"urls"`
	URLsDetected       []URLAnalysis `json:"urls_detected"`
	Platforms          []Platform    `json:"platforms_needed"`
	Result             []ScoredPost  `json:"result_data,omitempty"`
	SuccessfulScrapers []string      `json:"successful_scrapers,omitempty"`
	FailedScrapers     []string      `json:"failed_scrapers,omitempty"`
	ErrorText          string        `json:"error,omitempty"`
}

// Target is one account a platform scraper should cover: the submitted URL
// (used as the post's URL group) plus the handle extracted from it.
type Target struct {
	URL    string
	Handle string
}

// RawItem is one opaque record returned by a platform scraper, tagged with
// the submitted URL it originated from.
type RawItem struct {
	URLGroup string
	Data     map[string]any
}

// RawScrapeResult is the outcome of one platform's scrape job.
type RawScrapeResult struct {
	Platform  Platform
	Items     []RawItem
	OK        bool
	ErrorText string
}

// Stats is the platform-specific engagement counters of a post. Absent keys
// read as zero.
type Stats map[string]int

// Get returns the counter for key, or zero when absent.
func (s Stats) Get(key string) int {
	if s == nil {
		return 0
	}
	return s[key]
}

// Author describes the account that published a post.
type Author struct {
	Name       string `json:"name,omitempty"`
	Username   string `json:"username,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// NormalizedPost is the platform-agnostic post record produced by the
// normalizer. Immutable once built.
type NormalizedPost struct {
	Platform    Platform `json:"platform"`
	ContentType string   `json:"content_type"`
	MediaType   string   `json:"type"`
	URL         string   `json:"url,omitempty"`
	Text        string   `json:"text,omitempty"`
	Stats       Stats    `json:"stats"`
	Hashtags    []string `json:"hashtags,omitempty"`
	Author      Author   `json:"author"`
	URLGroup    string   `json:"url_group"`
}

// ScoredPost is a normalized post with its engagement score and, once
// selected, its position label ("post_1", "post_2", ...).
type ScoredPost struct {
	NormalizedPost
	EngagementScore float64 `json:"engagement_score"`
	PostNumber      string  `json:"post_number,omitempty"`
}

// QueueItem wraps a task ready for pipeline processing.
type QueueItem struct {
	TaskID    string
	URLs      []string
	Analysis  []URLAnalysis
	Submitted int64
}
