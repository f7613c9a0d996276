package models

import (
	"github.com/shopspring/decimal"
)

const (
	Currency = "GBP"

	MaxAmazonTitleLen  = 180
	MaxListingTitleLen = 200
)

// AmazonProduct is a candidate item found on an Amazon best-seller page.
type AmazonProduct struct {
	Title       string           `json:"title"`
	ASIN        string           `json:"asin,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Prime       bool             `json:"prime"`
	Rating      *float64         `json:"rating,omitempty"`
	ReviewCount *int             `json:"review_count,omitempty"`
	URL         string           `json:"url"`
	CategoryURL string           `json:"category_url"`
	ImageURL    string           `json:"image_url,omitempty"`
}

func (p *AmazonProduct) HasPrice() bool {
	return p.Price != nil && !p.Price.IsNegative()
}

// EbayListing is the cheapest matching eBay listing for one query.
type EbayListing struct {
	Title    string           `json:"title"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Shipping decimal.Decimal  `json:"shipping"`
	URL      string           `json:"url"`
}

// Total returns price plus shipping. It is false when the listing has no price.
func (l *EbayListing) Total() (decimal.Decimal, bool) {
	if l == nil || l.Price == nil {
		return decimal.Zero, false
	}
	return l.Price.Add(l.Shipping), true
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
