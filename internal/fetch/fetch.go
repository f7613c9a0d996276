package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const (
	maxBodyBytes = 10 << 20
	route        = "http"
)

// Document is a retrieved HTML page.
type Document struct {
	URL        string
	StatusCode int
	HTML       string
}

func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}

type Options struct {
	Timeout    time.Duration
	UserAgents []string
	Policy     Policy
	Transport  http.RoundTripper
	Metrics    *Metrics
}

func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		UserAgents: DefaultUserAgents(),
		Policy:     DefaultPolicy(),
	}
}

// Engine is a stateless HTTP fetcher with randomized client identity and
// linear backoff retries.
type Engine struct {
	client     *http.Client
	policy     Policy
	userAgents []string
	metrics    *Metrics
	logger     *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = DefaultUserAgents()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}

	return &Engine{
		client:     client,
		policy:     opts.Policy,
		userAgents: opts.UserAgents,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "fetch_engine"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch retrieves rawURL, retrying rate limits, transient upstream errors,
// 403 challenges and transport failures until the attempt budget is spent.
func (e *Engine) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	maxAttempts := e.policy.attempts()
	sleep := e.policy.sleepFunc()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := e.policy.Backoff(attempt - 1)
			e.metrics.IncRetries()
			e.logger.Warn("retrying fetch",
				"url", rawURL,
				"attempt", attempt,
				"wait", wait,
				"error", lastErr,
			)
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
			}
		}

		doc, err := e.attempt(ctx, rawURL)
		if err == nil {
			e.metrics.IncRequest(route, "success")
			return doc, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctxErr)
		}

		lastErr = err
		e.metrics.IncError(ErrorLabel(err))

		if !e.policy.Retryable(err) {
			e.metrics.IncRequest(route, "failed")
			return nil, &FetchError{URL: rawURL, Attempts: attempt, Err: err}
		}
	}

	e.metrics.IncRequest(route, "exhausted")
	e.logger.Error("fetch retries exhausted", "url", rawURL, "attempts", maxAttempts, "error", lastErr)
	return nil, &FetchError{URL: rawURL, Attempts: maxAttempts, Err: lastErr}
}

func (e *Engine) attempt(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	e.setHeaders(req)

	start := time.Now()
	resp, err := e.client.Do(req)
	e.metrics.ObserveDuration(route, time.Since(start))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	return &Document{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}, nil
}

func (e *Engine) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", e.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("DNT", "1")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Sec-Fetch-Dest", "document")
}

func (e *Engine) userAgent() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userAgents[e.rng.Intn(len(e.userAgents))]
}
