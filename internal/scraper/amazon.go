package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

// pageURL appends the pg parameter to a category URL.
func pageURL(categoryURL string, page int) string {
	sep := "?"
	if strings.Contains(categoryURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spg=%d", categoryURL, sep, page)
}

// ScrapeBestsellers collects up to maxItems priced products from the first
// pages of a best-seller category. A page that cannot be fetched ends the
// scan of that category with whatever was collected so far.
func (s *Scraper) ScrapeBestsellers(ctx context.Context, categoryURL string, maxItems int) ([]*models.AmazonProduct, error) {
	var out []*models.AmazonProduct
	if maxItems < 1 {
		return out, nil
	}

	for page := 1; page <= s.opts.Pages; page++ {
		if err := s.opts.Limiter.Wait(ctx); err != nil {
			return out, err
		}

		url := pageURL(categoryURL, page)
		doc, err := s.retriever.Get(ctx, url)
		if err != nil {
			if recoverable(err) {
				s.logger.Warn("best-seller page unavailable", "url", url, "error", err)
				return out, nil
			}
			return out, err
		}

		products, err := s.amazon.ParseBestsellerPage(doc.HTML, categoryURL)
		if err != nil {
			s.logger.Warn("failed to parse best-seller page", "url", url, "error", err)
			continue
		}

		for _, p := range products {
			if !p.HasPrice() || p.Title == "" {
				continue
			}
			out = append(out, p)
			if len(out) >= maxItems {
				return out, nil
			}
		}

		s.logger.Debug("best-seller page scraped", "url", url, "cards", len(products), "kept", len(out))
	}

	return out, nil
}
