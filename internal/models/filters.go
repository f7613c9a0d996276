package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Filters holds the thresholds and heuristics of one scan.
type Filters struct {
	MinProfit           decimal.Decimal `json:"min_profit"`
	MinMargin           decimal.Decimal `json:"min_margin"`
	MinRecentSales      int             `json:"min_recent_sales"`
	FeeRate             decimal.Decimal `json:"fee_rate"`
	FixedFee            decimal.Decimal `json:"fixed_fee"`
	MaxItemsPerCategory int             `json:"max_items_per_category"`
	MaxListingResults   int             `json:"max_listing_results"`
	AvoidKeywords       []string        `json:"avoid_keywords"`
	QueryWordCount      int             `json:"query_word_count"`
}

func DefaultAvoidKeywords() []string {
	return []string{"Apple iPhone", "Nike", "PlayStation", "Xbox", "Gift Card"}
}

func DefaultFilters() Filters {
	return Filters{
		MinProfit:           decimal.NewFromFloat(3.0),
		MinMargin:           decimal.NewFromFloat(0.12),
		MinRecentSales:      10,
		FeeRate:             decimal.NewFromFloat(0.13),
		FixedFee:            decimal.NewFromFloat(0.30),
		MaxItemsPerCategory: 50,
		MaxListingResults:   8,
		AvoidKeywords:       DefaultAvoidKeywords(),
		QueryWordCount:      8,
	}
}

func (f Filters) Validate() error {
	one := decimal.NewFromInt(1)

	if f.MinProfit.IsNegative() {
		return fmt.Errorf("min profit cannot be negative")
	}
	if f.MinMargin.IsNegative() || f.MinMargin.GreaterThan(one) {
		return fmt.Errorf("min margin must be between 0 and 1")
	}
	if f.MinRecentSales < 0 {
		return fmt.Errorf("min recent sales cannot be negative")
	}
	if f.FeeRate.IsNegative() || f.FeeRate.GreaterThan(one) {
		return fmt.Errorf("fee rate must be between 0 and 1")
	}
	if f.FixedFee.IsNegative() {
		return fmt.Errorf("fixed fee cannot be negative")
	}
	if f.MaxItemsPerCategory < 1 {
		return fmt.Errorf("max items per category must be at least 1")
	}
	if f.MaxListingResults < 1 {
		return fmt.Errorf("max listing results must be at least 1")
	}
	if f.QueryWordCount < 1 {
		return fmt.Errorf("query word count must be at least 1")
	}
	return nil
}

// Avoids reports whether title contains any avoid keyword, ignoring case.
func (f Filters) Avoids(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range f.AvoidKeywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
