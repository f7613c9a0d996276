package models

import (
	"github.com/shopspring/decimal"
)

// Opportunity is one merged Amazon/eBay row. It is only built when both
// prices are known, so profit and margin are always present together.
type Opportunity struct {
	Title        string          `json:"title"`
	AmazonPrice  decimal.Decimal `json:"amazon_price"`
	EbayPrice    decimal.Decimal `json:"ebay_price"`
	EbayShipping decimal.Decimal `json:"ebay_shipping"`
	EbayTotal    decimal.Decimal `json:"ebay_total_price"`
	EstimatedFee decimal.Decimal `json:"estimated_ebay_fee"`
	Profit       decimal.Decimal `json:"est_profit_gbp"`
	Margin       decimal.Decimal `json:"est_margin"`
	SoldRecent   int             `json:"sold_recent"`
	Prime        bool            `json:"prime"`
	Rating       *float64        `json:"rating,omitempty"`
	Reviews      *int            `json:"reviews,omitempty"`
	AmazonURL    string          `json:"amazon_url"`
	EbayURL      string          `json:"ebay_url"`
	ASIN         string          `json:"asin,omitempty"`
	CategoryURL  string          `json:"category_url"`
	ImageURL     string          `json:"image_url,omitempty"`
}

// MarginPercent returns the margin as a percentage rounded to two places.
func (o *Opportunity) MarginPercent() decimal.Decimal {
	return o.Margin.Mul(decimal.NewFromInt(100)).Round(2)
}
