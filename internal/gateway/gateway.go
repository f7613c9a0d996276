package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/maltedev/arbitrage-scanner/internal/fetch"
)

var ErrInvalidURL = errors.New("invalid url")

// Retriever is the single page-retrieval surface used by the scrapers.
type Retriever interface {
	Get(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// Fetcher retrieves one page. Both the HTTP engine and the authenticated
// session satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

type Route string

const (
	RouteSession Route = "session"
	RouteHTTP    Route = "http"
)

var sessionHosts = []string{"amazon.co.uk", "amazon.com"}

// RouteFor decides which backend serves rawURL.
func RouteFor(rawURL string) (Route, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}

	for _, suffix := range sessionHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return RouteSession, nil
		}
	}
	return RouteHTTP, nil
}

// Gateway sends Amazon URLs through the logged-in session and everything
// else through the plain HTTP engine.
type Gateway struct {
	session Fetcher
	http    Fetcher
	logger  *slog.Logger

	sessionCount atomic.Int64
	httpCount    atomic.Int64
}

func New(session, http Fetcher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		session: session,
		http:    http,
		logger:  logger.With("component", "gateway"),
	}
}

func (g *Gateway) Get(ctx context.Context, rawURL string) (*fetch.Document, error) {
	route, err := RouteFor(rawURL)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("routing request", "url", rawURL, "route", route)

	if route == RouteSession {
		g.sessionCount.Add(1)
		return g.session.Fetch(ctx, rawURL)
	}
	g.httpCount.Add(1)
	return g.http.Fetch(ctx, rawURL)
}

// Counts reports how many requests went to each route.
func (g *Gateway) Counts() map[Route]int64 {
	return map[Route]int64{
		RouteSession: g.sessionCount.Load(),
		RouteHTTP:    g.httpCount.Load(),
	}
}
