// Package scrape fans platform scrape jobs out and collects their results.
package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/socialpulse/content-engine/internal/content"
	"github.com/socialpulse/content-engine/internal/metrics"
)

// DefaultTimeout bounds a single platform's scrape job.
const DefaultTimeout = 5 * time.Minute

// Job is one platform's share of a task: every submitted target that resolved
// to that platform.
type Job struct {
	Platform content.Platform
	Targets  []content.Target
}

// Invoker runs one scrape job per platform concurrently. Jobs fail
// independently; a failed platform yields a RawScrapeResult with OK false and
// never aborts its siblings.
type Invoker struct {
	scraper content.Scraper
	timeout time.Duration
	limit   int
	log     *zap.Logger
}

func NewInvoker(scraper content.Scraper, timeout time.Duration, limit int, log *zap.Logger) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Invoker{scraper: scraper, timeout: timeout, limit: limit, log: log}
}

// Run executes all jobs and returns one result per job, in job order.
func (inv *Invoker) Run(ctx context.Context, jobs []Job) []content.RawScrapeResult {
	results := make([]content.RawScrapeResult, len(jobs))

	var g errgroup.Group
	if inv.limit > 0 {
		g.SetLimit(inv.limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = inv.runOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (inv *Invoker) runOne(ctx context.Context, job Job) content.RawScrapeResult {
	jobCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	items, err := inv.scraper.Scrape(jobCtx, job.Platform, job.Targets)
	if err != nil {
		metrics.ObserveScrapeJob(string(job.Platform), "error", time.Since(start))
		inv.log.Warn("platform scrape failed",
			zap.String("platform", string(job.Platform)),
			zap.Int("targets", len(job.Targets)),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return content.RawScrapeResult{Platform: job.Platform, OK: false, ErrorText: err.Error()}
	}

	metrics.ObserveScrapeJob(string(job.Platform), "ok", time.Since(start))
	inv.log.Info("platform scrape finished",
		zap.String("platform", string(job.Platform)),
		zap.Int("targets", len(job.Targets)),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)))
	return content.RawScrapeResult{Platform: job.Platform, Items: items, OK: true}
}

// AllFailed reports whether not a single job succeeded. An empty result set
// counts as failed; there is nothing to work with either way.
func AllFailed(results []content.RawScrapeResult) bool {
	for _, r := range results {
		if r.OK {
			return false
		}
	}
	return true
}

// Partition splits an analyzed URL batch into per-platform jobs, keeping both
// platform order and target order as submitted. Unknown platforms are left
// out.
func Partition(analysis []content.URLAnalysis) []Job {
	index := make(map[content.Platform]int)
	var jobs []Job
	for _, a := range analysis {
		if a.Platform == content.PlatformUnknown {
			continue
		}
		i, ok := index[a.Platform]
		if !ok {
			i = len(jobs)
			index[a.Platform] = i
			jobs = append(jobs, Job{Platform: a.Platform})
		}
		jobs[i].Targets = append(jobs[i].Targets, content.Target{URL: a.URL, Handle: a.Username})
	}
	return jobs
}
