package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maltedev/arbitrage-scanner/internal/fetch"
	"github.com/maltedev/arbitrage-scanner/internal/ratelimit"
)

const (
	kitchenURL = "https://www.amazon.co.uk/gp/bestsellers/kitchen"
	toysURL    = "https://www.amazon.co.uk/gp/bestsellers/toys"
)

// fakeRetriever serves canned documents by URL. Unknown URLs fail like an
// exhausted 404 fetch.
type fakeRetriever struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{
		pages: map[string]string{},
		errs:  map[string]error{},
	}
}

func (r *fakeRetriever) Get(_ context.Context, rawURL string) (*fetch.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rawURL)

	if err, ok := r.errs[rawURL]; ok {
		return nil, err
	}
	html, ok := r.pages[rawURL]
	if !ok {
		return nil, &fetch.FetchError{URL: rawURL, Attempts: 1, Err: &fetch.StatusError{StatusCode: 404}}
	}
	return &fetch.Document{URL: rawURL, StatusCode: 200, HTML: html}, nil
}

func (r *fakeRetriever) callsMatching(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

type item struct {
	title string
	asin  string
	price string
}

func bestsellerPage(items ...item) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, it := range items {
		fmt.Fprintf(&b, `<div class="zg-grid-general-faceout">
			<a class="a-link-normal" href="/item/dp/%s"><div class="_cDEzb_p13n-sc-css-line-clamp-3_g3dy1">%s</div></a>`, it.asin, it.title)
		if it.price != "" {
			fmt.Fprintf(&b, `<span class="_cDEzb_p13n-sc-price_3mJ9Z">%s</span>`, it.price)
		}
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

type offer struct {
	price    string
	shipping string
	url      string
}

func searchPage(offers ...offer) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, o := range offers {
		fmt.Fprintf(&b, `<li class="s-item"><h3 class="s-item__title">Listing</h3>
			<span class="s-item__price">%s</span>
			<span class="s-item__shipping">%s</span>
			<a class="s-item__link" href="%s">x</a></li>`, o.price, o.shipping, o.url)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func soldPage(labels ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, l := range labels {
		fmt.Fprintf(&b, `<li class="s-item"><span class="s-item__quantitySold">%s</span></li>`, l)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

const emptyPage = "<html><body></body></html>"

// servePages registers a category whose first page holds items and whose
// later pages are empty.
func servePages(r *fakeRetriever, category string, items ...item) {
	r.pages[pageURL(category, 1)] = bestsellerPage(items...)
	r.pages[pageURL(category, 2)] = emptyPage
	r.pages[pageURL(category, 3)] = emptyPage
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++
	return ctx.Err()
}

func (l *countingLimiter) SetDelay(_, _ time.Duration) {}

func newTestScraper(t *testing.T, r *fakeRetriever) *Scraper {
	t.Helper()
	s, err := New(r, Options{
		Limiter:     ratelimit.NoDelay{},
		SoldLimiter: ratelimit.NoDelay{},
	}, nil)
	require.NoError(t, err)
	return s
}
