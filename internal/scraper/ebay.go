package scraper

import (
	"context"

	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/maltedev/arbitrage-scanner/internal/parser"
)

// BestListing finds the cheapest new, fixed-price, UK-located listing for
// query among the first maxResults results. It returns nil without error
// when nothing priced was found. Results are memoised per query.
func (s *Scraper) BestListing(ctx context.Context, query string, maxResults int) (*models.EbayListing, error) {
	key := listingKey{query: query, max: maxResults}
	if cached, ok := s.listings.Get(key); ok {
		return cached, nil
	}

	if err := s.opts.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := parser.ActiveSearchURL(query)
	doc, err := s.retriever.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var best *models.EbayListing
	listings, err := s.ebay.ParseListings(doc.HTML, maxResults, url)
	if err != nil {
		s.logger.Debug("no listings parsed", "query", query, "error", err)
	} else {
		best = parser.BestListing(listings)
	}

	s.listings.Add(key, best)
	return best, nil
}

// RecentSales sums the sold counts shown on completed listings for query.
// The sum runs across listings, so it approximates demand rather than
// counting individual sales.
func (s *Scraper) RecentSales(ctx context.Context, query string) (int, error) {
	if cached, ok := s.sales.Get(query); ok {
		return cached, nil
	}

	if err := s.opts.SoldLimiter.Wait(ctx); err != nil {
		return 0, err
	}

	doc, err := s.retriever.Get(ctx, parser.SoldSearchURL(query))
	if err != nil {
		return 0, err
	}

	sold, err := s.ebay.ParseSoldCount(doc.HTML, s.opts.SoldScanLimit)
	if err != nil {
		s.logger.Debug("no sold listings parsed", "query", query, "error", err)
		sold = 0
	}

	s.sales.Add(query, sold)
	return sold, nil
}
