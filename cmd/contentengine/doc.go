// Package main hosts the content engine service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, task submission
//     and task polling endpoints. Submitted URL batches are validated,
//     classified per platform, persisted via the TaskStore and enqueued for
//     background processing.
//   - Dispatcher & queue: tasks flow through a bounded in-memory queue sized
//     by config.Pipeline.QueueDepth and are fanned out to a fixed worker pool
//     sized by config.Pipeline.Concurrency. Context cancellation stops
//     workers cleanly on shutdown.
//   - Scrape pipeline: each worker partitions a task's URLs into one job per
//     platform and runs those jobs concurrently against Apify actors, each
//     under its own timeout. Twitter seeds are expanded into full threads via
//     an unrollnow.com lookup before fetching the remaining tweets.
//   - Normalize & select: raw actor items are mapped into platform-agnostic
//     posts, scored with per-platform engagement formulas and distributed
//     across the submitted URL groups down to the configured target count.
//   - Persistence & fanout: intermediate and final JSON artifacts are written
//     to the configured BlobStore (memory/local/GCS), task records live in
//     memory or Postgres, and a compact Pub/Sub event is published on
//     terminal status when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files with
//     the CONTENT prefix; zap provides structured logging; Prometheus metrics
//     are exported via the metrics middleware and /metrics handler.
//
// Run locally: go run ./cmd/contentengine -config config.yaml (or rely solely
// on env overrides). The process reacts to SIGTERM for graceful drain.
package main
