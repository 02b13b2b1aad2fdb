package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"newsfeed/models"
)

const acceptHeader = "application/xml, application/atom+xml, application/rss+xml, application/feed+json, application/json, text/html, */*;q=0.9"

// Response bodies above this size are truncated before parsing.
const maxBodySize = 10 << 20

var (
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfeed_fetch_attempts_total",
		Help: "Number of feed fetch attempts",
	})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsfeed_fetch_failures_total",
		Help: "Number of failed feed fetches by source",
	}, []string{"source"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsfeed_fetch_duration_seconds",
		Help:    "Duration of feed fetches",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket, 10 buckets
	})
)

// Fetcher retrieves and normalizes a single feed source per call. Safe for
// concurrent use.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries uint64
}

func NewFetcher(timeout time.Duration, maxRetries int, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxRetries: uint64(max(maxRetries, 0)),
	}
}

// Fetch retrieves the source URL and normalizes its items. Any failure is
// folded into the returned result; the caller decides whether to log it.
func (f *Fetcher) Fetch(ctx context.Context, source models.FeedSource) FetchResult {
	parsed, err := f.probe(ctx, source)
	if err != nil {
		return FetchResult{Source: source, Err: err}
	}
	return FetchResult{Source: source, Items: parsed.Items}
}

// Probe fetches and parses a candidate feed URL without requiring a
// registered source. Used to validate URLs before persisting them.
func (f *Fetcher) Probe(ctx context.Context, url string) (*ParsedFeed, error) {
	return f.probe(ctx, models.FeedSource{Name: "candidate", URL: url})
}

func (f *Fetcher) probe(ctx context.Context, source models.FeedSource) (*ParsedFeed, error) {
	start := time.Now()
	body, err := f.get(ctx, source.URL)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchFailures.WithLabelValues(source.Name).Inc()
		return nil, err
	}

	parsed, err := Parse(body, source, time.Now())
	if err != nil {
		fetchFailures.WithLabelValues(source.Name).Inc()
		return nil, err
	}

	log.WithFields(log.Fields{
		"source": source.Name,
		"count":  len(parsed.Items),
	}).Debug("Fetched feed")

	return parsed, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	// Retry transient failures with exponential backoff; client errors are
	// permanent since the server already gave a definitive answer.
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)

	var body []byte
	op := func() error {
		fetchAttempts.Inc()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("Accept", acceptHeader)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d", url, resp.StatusCode))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("fetch %s: read body: %w", url, err)
		}
		return nil
	}

	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return body, nil
}
