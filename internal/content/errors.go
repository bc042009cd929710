package content

import "errors"

// Sentinel errors callers branch on.
var (
	// ErrTaskNotFound distinguishes an unknown/expired task id from a task
	// that finished in error.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned by task stores when a write would
	// violate the started -> processing -> terminal lifecycle.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrPlatformUnsupported is returned by the classifier for URLs that
	// match no known platform.
	ErrPlatformUnsupported = errors.New("platform unsupported")

	// ErrAllScrapersFailed is the fatal scrape-stage condition: no platform
	// job produced any data.
	ErrAllScrapersFailed = errors.New("all scrapers failed")
)
