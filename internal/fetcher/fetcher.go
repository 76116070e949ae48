// Package fetcher retrieves reference URLs and reduces them to a short
// plain-text summary suitable for a generation prompt.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilbhutani/podcastai/internal/cache"
	"github.com/nikhilbhutani/podcastai/internal/config"
	"github.com/nikhilbhutani/podcastai/internal/metrics"
	"github.com/nikhilbhutani/podcastai/pkg/textextract"
	"github.com/nikhilbhutani/podcastai/pkg/tokenizer"
)

const (
	userAgent    = "Mozilla/5.0 (compatible; PodcastGenerator/1.0; +https://example.com)"
	maxBodyBytes = 10 << 20
)

// Result is the outcome of fetching a batch of URLs. Failed URLs are soft
// failures and simply contribute nothing to Summaries.
type Result struct {
	Summaries string
	Failed    []string
}

type extractFunc func(ctx context.Context, data []byte, contentType string) (*textextract.ExtractedText, error)

type Fetcher struct {
	httpClient *http.Client
	extract    extractFunc
	timeout    time.Duration
	maxWords   int
	cache      cache.Cache
	cacheTTL   time.Duration
	metrics    *metrics.Metrics
}

// New creates a Fetcher. c may be nil to disable caching.
func New(cfg config.FetcherConfig, c cache.Cache, m *metrics.Metrics) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = 500
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		extract:    textextract.Extract,
		timeout:    cfg.Timeout,
		maxWords:   cfg.MaxWords,
		cache:      c,
		cacheTTL:   cfg.CacheTTL,
		metrics:    m,
	}
}

// Fetch downloads url and returns its readable text capped at the word limit.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if text, ok := f.cached(ctx, url); ok {
		return text, nil
	}

	text, err := f.fetch(ctx, url)
	f.metrics.CallAttempt(metrics.ServiceFetch, err)
	if err != nil {
		return "", err
	}

	if f.cache != nil && f.cacheTTL > 0 {
		if err := f.cache.Set(ctx, cacheKey(url), text, f.cacheTTL); err != nil {
			slog.Warn("fetch cache write failed", "url", url, "cache", f.cache.Name(), "error", err)
		}
	}
	return text, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: HTTP %d: %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	extracted, err := f.extractWithin(ctx, body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", url, err)
	}

	text, _ := tokenizer.TruncateWords(extracted.Content, f.maxWords)
	slog.Debug("reference content extracted",
		"url", url,
		"type", extracted.Metadata["type"],
		"title", extracted.Metadata["title"],
		"pages", extracted.Pages,
		"words", tokenizer.CountWords(extracted.Content),
	)
	return text, nil
}

// extractWithin bounds extraction by the fetch deadline. An extraction that
// outlives ctx is abandoned and reported as ctx's error.
func (f *Fetcher) extractWithin(ctx context.Context, body []byte, contentType string) (*textextract.ExtractedText, error) {
	type result struct {
		out *textextract.ExtractedText
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", textextract.ErrMalformed, r)}
			}
		}()
		out, err := f.extract(ctx, body, contentType)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchAll fetches urls one after another. A URL that fails is logged and
// listed in Result.Failed; empty pages are skipped silently.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) Result {
	var res Result
	var summaries []string

	for _, u := range urls {
		content, err := f.Fetch(ctx, u)
		if err != nil {
			slog.Warn("failed to fetch reference URL", "url", u, "error", err)
			res.Failed = append(res.Failed, u)
			continue
		}
		if content != "" {
			summaries = append(summaries, fmt.Sprintf("Content from %s:\n%s", u, content))
		}
	}

	res.Summaries = strings.Join(summaries, "\n\n---\n\n")
	return res
}

func (f *Fetcher) cached(ctx context.Context, url string) (string, bool) {
	if f.cache == nil {
		return "", false
	}
	text, err := f.cache.Get(ctx, cacheKey(url))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("fetch cache read failed", "url", url, "cache", f.cache.Name(), "error", err)
		}
		return "", false
	}
	return text, true
}

func cacheKey(url string) string { return "fetch:" + url }
