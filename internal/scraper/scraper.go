package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maltedev/arbitrage-scanner/internal/fetch"
	"github.com/maltedev/arbitrage-scanner/internal/gateway"
	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/maltedev/arbitrage-scanner/internal/parser"
	"github.com/maltedev/arbitrage-scanner/internal/ratelimit"
)

var (
	ErrNoCategories   = errors.New("no categories to scan")
	ErrInvalidFilters = errors.New("invalid filters")
)

const (
	DefaultPages         = 3
	DefaultSoldScanLimit = 20
	DefaultCacheSize     = 512
)

type Options struct {
	// Limiter paces Amazon page and eBay listing requests.
	Limiter ratelimit.RateLimiter
	// SoldLimiter paces sold-listing searches, which use a shorter window.
	SoldLimiter   ratelimit.RateLimiter
	Pages         int
	SoldScanLimit int
	CacheSize     int
}

func DefaultOptions() Options {
	return Options{
		Limiter:       ratelimit.NewSimpleRateLimiter(1000*time.Millisecond, 2200*time.Millisecond),
		SoldLimiter:   ratelimit.NewSimpleRateLimiter(600*time.Millisecond, 1400*time.Millisecond),
		Pages:         DefaultPages,
		SoldScanLimit: DefaultSoldScanLimit,
		CacheSize:     DefaultCacheSize,
	}
}

type listingKey struct {
	query string
	max   int
}

// Scraper runs category discovery, best-seller scraping and eBay lookups
// through a single Retriever, one request at a time.
type Scraper struct {
	retriever gateway.Retriever
	amazon    *parser.AmazonParser
	ebay      *parser.EbayParser
	opts      Options
	logger    *slog.Logger

	listings *lru.Cache[listingKey, *models.EbayListing]
	sales    *lru.Cache[string, int]
}

func New(retriever gateway.Retriever, opts Options, logger *slog.Logger) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultOptions()
	if opts.Limiter == nil {
		opts.Limiter = defaults.Limiter
	}
	if opts.SoldLimiter == nil {
		opts.SoldLimiter = defaults.SoldLimiter
	}
	if opts.Pages < 1 {
		opts.Pages = defaults.Pages
	}
	if opts.SoldScanLimit < 1 {
		opts.SoldScanLimit = defaults.SoldScanLimit
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = defaults.CacheSize
	}

	listings, err := lru.New[listingKey, *models.EbayListing](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing cache: %w", err)
	}
	sales, err := lru.New[string, int](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sales cache: %w", err)
	}

	return &Scraper{
		retriever: retriever,
		amazon:    parser.NewAmazonParser(),
		ebay:      parser.NewEbayParser(),
		opts:      opts,
		logger:    logger.With("component", "scraper"),
		listings:  listings,
		sales:     sales,
	}, nil
}

// recoverable reports whether err only means "no data" for the current
// category or query. Authentication and cancellation errors are not.
func recoverable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return fetch.IsFetchError(err) || errors.Is(err, gateway.ErrInvalidURL)
}
