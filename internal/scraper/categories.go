package scraper

import (
	"context"
	"sort"

	"github.com/maltedev/arbitrage-scanner/internal/parser"
)

const bestsellersRoot = parser.AmazonBaseURL + "/gp/bestsellers"

// DefaultSeedCategories is used when live discovery finds nothing.
func DefaultSeedCategories() []string {
	slugs := []string{
		"electronics", "kitchen", "computers", "garden", "sports",
		"toys", "health", "beauty", "diy", "automotive",
	}
	out := make([]string, len(slugs))
	for i, s := range slugs {
		out[i] = bestsellersRoot + "/" + s
	}
	return out
}

// DiscoverCategories returns up to max best-seller category URLs in
// lexicographic order. Any failure falls back to the seed list, so it only
// returns an empty slice when max < 1.
func (s *Scraper) DiscoverCategories(ctx context.Context, max int) []string {
	if max < 1 {
		return []string{}
	}

	links := s.discover(ctx, max)
	if len(links) == 0 {
		s.logger.Warn("category discovery found nothing, using seed categories")
		links = fallbackCategories(max)
	}

	s.logger.Info("categories discovered", "count", len(links))
	return links
}

func (s *Scraper) discover(ctx context.Context, max int) []string {
	doc, err := s.retriever.Get(ctx, bestsellersRoot)
	if err != nil {
		s.logger.Warn("failed to fetch best-seller root", "error", err)
		return nil
	}

	links, err := s.amazon.ParseCategoryLinks(doc.HTML, max)
	if err != nil {
		s.logger.Warn("failed to parse best-seller root", "error", err)
		return nil
	}
	return links
}

func fallbackCategories(max int) []string {
	seeds := DefaultSeedCategories()
	if max < len(seeds) {
		seeds = seeds[:max]
	}
	sort.Strings(seeds)
	return seeds
}
