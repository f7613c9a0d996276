package parser

import (
	"net/url"
	"testing"

	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResults = `<html><body><ul>
	<li class="s-item">
		<div class="s-item__title"><span role="heading">Shop on eBay</span></div>
		<span class="s-item__price">£20.00</span>
		<span class="s-item__shipping">+£5.00 postage</span>
		<a class="s-item__link" href="https://www.ebay.co.uk/itm/1">x</a>
	</li>
	<li class="s-item">
		<h3 class="s-item__title">Digital Kitchen Scales</h3>
		<span class="s-item__price">£21.50</span>
		<span class="s-item__shipping">Free postage</span>
		<a class="s-item__link" href="https://www.ebay.co.uk/itm/2">x</a>
	</li>
	<li class="s-item">
		<h3 class="s-item__title">Scales without price</h3>
		<a class="s-item__link" href="https://www.ebay.co.uk/itm/3">x</a>
	</li>
	<li class="s-item">
		<h3 class="s-item__title">Cheap but outside scan window</h3>
		<span class="s-item__price">£1.00</span>
	</li>
</ul></body></html>`

func TestParseListings(t *testing.T) {
	p := NewEbayParser()

	listings, err := p.ParseListings(searchResults, 3, "https://fallback")
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "Shop on eBay", listings[0].Title)
	assert.True(t, listings[0].Shipping.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "Digital Kitchen Scales", listings[1].Title)
	assert.True(t, listings[1].Shipping.IsZero())
	assert.Equal(t, "https://www.ebay.co.uk/itm/2", listings[1].URL)

	best := BestListing(listings)
	require.NotNil(t, best)
	assert.Equal(t, "https://www.ebay.co.uk/itm/2", best.URL)
}

func TestParseListingsFallbackLink(t *testing.T) {
	p := NewEbayParser()

	listings, err := p.ParseListings(searchResults, 10, "https://fallback")
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "https://fallback", listings[2].URL)

	best := BestListing(listings)
	require.NotNil(t, best)
	assert.Equal(t, "Cheap but outside scan window", best.Title)
}

func TestBestListingSkipsMissingPrice(t *testing.T) {
	price := decimal.NewFromInt(10)

	best := BestListing([]*models.EbayListing{
		{Title: "no price"},
		{Title: "priced", Price: &price},
	})
	require.NotNil(t, best)
	assert.Equal(t, "priced", best.Title)

	assert.Nil(t, BestListing(nil))
	assert.Nil(t, BestListing([]*models.EbayListing{{Title: "no price"}}))
}

func TestBestListingKeepsFirstOnTie(t *testing.T) {
	a := decimal.NewFromInt(10)
	b := decimal.NewFromInt(8)

	best := BestListing([]*models.EbayListing{
		{Title: "first", Price: &a},
		{Title: "second", Price: &b, Shipping: decimal.NewFromInt(2)},
	})
	assert.Equal(t, "first", best.Title)
}

func TestParseSoldCount(t *testing.T) {
	p := NewEbayParser()

	html := `<html><body><ul>
		<li class="s-item"><span class="s-item__hotness">12 sold</span></li>
		<li class="s-item"><span class="BOLD">1,000 sold</span></li>
		<li class="s-item"><span class="s-item__quantitySold">Last one</span></li>
		<li class="s-item"><span aria-label="3 sold">3 sold</span></li>
		<li class="s-item"><span class="s-item__hotness">5 sold</span></li>
	</ul></body></html>`

	total, err := p.ParseSoldCount(html, 4)
	require.NoError(t, err)
	assert.Equal(t, 1015, total)

	all, err := p.ParseSoldCount(html, 20)
	require.NoError(t, err)
	assert.Equal(t, 1020, all)
}

func TestSearchURLs(t *testing.T) {
	active, err := url.Parse(ActiveSearchURL("kitchen scales"))
	require.NoError(t, err)
	q := active.Query()
	assert.Equal(t, "www.ebay.co.uk", active.Host)
	assert.Equal(t, "kitchen scales", q.Get("_nkw"))
	assert.Equal(t, "1", q.Get("LH_BIN"))
	assert.Equal(t, "1", q.Get("LH_PrefLoc"))
	assert.Equal(t, "1000", q.Get("LH_ItemCondition"))
	assert.Equal(t, "15", q.Get("_sop"))

	sold, err := url.Parse(SoldSearchURL("kitchen scales"))
	require.NoError(t, err)
	q = sold.Query()
	assert.Equal(t, "1", q.Get("LH_Sold"))
	assert.Equal(t, "1", q.Get("LH_Complete"))
	assert.Equal(t, "10", q.Get("_sop"))
}
