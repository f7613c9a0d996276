package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

// BuildQuery keeps the first n whitespace-separated words of title.
func BuildQuery(title string, n int) string {
	return strings.Join(lo.Slice(strings.Fields(title), 0, n), " ")
}

// FindOpportunities scrapes every category and returns the ranked rows that
// pass filters. Unreachable pages and searches count as no data; login and
// cancellation errors abort the run.
func (s *Scraper) FindOpportunities(ctx context.Context, categories []string, filters models.Filters) ([]models.Opportunity, error) {
	if err := filters.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilters, err)
	}
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}

	rows := []models.Opportunity{}
	for _, category := range categories {
		products, err := s.ScrapeBestsellers(ctx, category, filters.MaxItemsPerCategory)
		if err != nil {
			return nil, fmt.Errorf("scrape %s: %w", category, err)
		}

		s.logger.Info("scanning category", "category", category, "products", len(products))

		for _, product := range products {
			row, ok, err := s.evaluate(ctx, product, filters)
			if err != nil {
				return nil, err
			}
			if ok {
				rows = append(rows, row)
			}
		}
	}

	Rank(rows)
	s.logger.Info("scan finished", "categories", len(categories), "opportunities", len(rows))
	return rows, nil
}

func (s *Scraper) evaluate(ctx context.Context, p *models.AmazonProduct, filters models.Filters) (models.Opportunity, bool, error) {
	if filters.Avoids(p.Title) || !p.HasPrice() {
		return models.Opportunity{}, false, nil
	}

	query := BuildQuery(p.Title, filters.QueryWordCount)

	listing, err := s.BestListing(ctx, query, filters.MaxListingResults)
	if err != nil {
		if !recoverable(err) {
			return models.Opportunity{}, false, err
		}
		s.logger.Warn("listing search failed", "query", query, "error", err)
		return models.Opportunity{}, false, nil
	}
	if listing == nil {
		return models.Opportunity{}, false, nil
	}

	sold, err := s.RecentSales(ctx, query)
	if err != nil {
		if !recoverable(err) {
			return models.Opportunity{}, false, err
		}
		s.logger.Warn("sold search failed", "query", query, "error", err)
		sold = 0
	}

	est, ok := EstimateProfit(*p.Price, *listing.Price, listing.Shipping, filters.FeeRate, filters.FixedFee)
	if !ok {
		return models.Opportunity{}, false, nil
	}

	row := models.Opportunity{
		Title:        p.Title,
		AmazonPrice:  *p.Price,
		EbayPrice:    *listing.Price,
		EbayShipping: listing.Shipping,
		EbayTotal:    est.Total,
		EstimatedFee: est.Fee,
		Profit:       est.Profit,
		Margin:       est.Margin,
		SoldRecent:   sold,
		Prime:        p.Prime,
		Rating:       p.Rating,
		Reviews:      p.ReviewCount,
		AmazonURL:    p.URL,
		EbayURL:      listing.URL,
		ASIN:         p.ASIN,
		CategoryURL:  p.CategoryURL,
		ImageURL:     p.ImageURL,
	}

	return row, Qualifies(row, filters), nil
}
