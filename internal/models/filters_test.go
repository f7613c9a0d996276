package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFiltersAvoids(t *testing.T) {
	f := DefaultFilters()

	assert.True(t, f.Avoids("Microsoft xbox Series X Controller"))
	assert.True(t, f.Avoids("NIKE running socks"))
	assert.False(t, f.Avoids("Kitchen scales"))

	f.AvoidKeywords = []string{"", "  "}
	assert.False(t, f.Avoids("anything"))
}

func TestFiltersValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Filters)
		wantErr bool
	}{
		{"defaults", func(f *Filters) {}, false},
		{"negative profit", func(f *Filters) { f.MinProfit = decimal.NewFromInt(-1) }, true},
		{"margin above one", func(f *Filters) { f.MinMargin = decimal.NewFromFloat(1.5) }, true},
		{"fee rate above one", func(f *Filters) { f.FeeRate = decimal.NewFromInt(2) }, true},
		{"zero items", func(f *Filters) { f.MaxItemsPerCategory = 0 }, true},
		{"zero listings", func(f *Filters) { f.MaxListingResults = 0 }, true},
		{"zero query words", func(f *Filters) { f.QueryWordCount = 0 }, true},
		{"negative sales", func(f *Filters) { f.MinRecentSales = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilters()
			tt.mutate(&f)
			if tt.wantErr {
				assert.Error(t, f.Validate())
			} else {
				assert.NoError(t, f.Validate())
			}
		})
	}
}

func TestEbayListingTotal(t *testing.T) {
	price := decimal.RequireFromString("20.00")
	l := &EbayListing{Price: &price, Shipping: decimal.RequireFromString("2.00")}

	total, ok := l.Total()
	assert.True(t, ok)
	assert.True(t, total.Equal(decimal.RequireFromString("22")))

	_, ok = (&EbayListing{}).Total()
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "££", Truncate("£££", 2))
}
