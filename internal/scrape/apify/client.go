// Package apify talks to the Apify actor platform, which hosts the
// per-platform scraping actors.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.apify.com"

// Client runs actors synchronously and returns their dataset items. Calls
// are rate limited so parallel platform jobs cannot exhaust the account's
// request allowance.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host. Tests use this with
// httptest servers.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithRateLimit sets the sustained actor-calls-per-second budget.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func NewClient(token string, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunSync starts an actor with the given input, waits for it to finish and
// returns the default dataset items. The context bounds the whole call,
// including the time spent waiting on the rate limiter.
func (c *Client) RunSync(ctx context.Context, actorID string, input any) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding actor input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s&format=json",
		c.baseURL, url.PathEscape(actorID), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("running actor %s: %w", actorID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("actor %s returned %d: %s", actorID, resp.StatusCode, snippet)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding dataset for actor %s: %w", actorID, err)
	}

	c.log.Debug("actor run finished",
		zap.String("actor", actorID),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)))
	return items, nil
}
