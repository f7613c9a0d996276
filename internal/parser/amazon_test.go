package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoryURL = "https://www.amazon.co.uk/gp/bestsellers/kitchen"

const bestsellerCard = `<div class="zg-grid-general-faceout">
	<a class="a-link-normal aok-block" href="/sspa/click?x=1"><img src="data:image/gif;base64,AAA"></a>
	<a class="a-link-normal" href="/Digital-Kitchen-Scales/dp/B07PGL2ZSL/ref=zg_bs_kitchen_1" title="Link title">
		<img src="https://m.media-amazon.com/images/I/61scale.jpg">
		<div class="_cDEzb_p13n-sc-css-line-clamp-3_g3dy1">Digital Kitchen Scales   Stainless Steel</div>
	</a>
	<div class="a-icon-row">
		<a href="/product-reviews/B07PGL2ZSL"><i class="a-icon a-icon-star-small"><span class="a-icon-alt">4.6 out of 5 stars</span></i>
		<span class="a-size-small">12,345</span></a>
	</div>
	<i class="a-icon a-icon-prime"></i>
	<span class="_cDEzb_p13n-sc-price_3mJ9Z">£9.99</span>
</div>`

func card(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("body > div").First()
}

func TestExtractProduct(t *testing.T) {
	p := NewAmazonParser()

	product, ok := p.ExtractProduct(card(t, bestsellerCard), categoryURL)
	require.True(t, ok)

	assert.Equal(t, "Digital Kitchen Scales Stainless Steel", product.Title)
	assert.Equal(t, "B07PGL2ZSL", product.ASIN)
	assert.Equal(t, "https://www.amazon.co.uk/Digital-Kitchen-Scales/dp/B07PGL2ZSL/ref=zg_bs_kitchen_1", product.URL)
	assert.Equal(t, categoryURL, product.CategoryURL)
	require.NotNil(t, product.Price)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, product.Prime)
	require.NotNil(t, product.Rating)
	assert.InDelta(t, 4.6, *product.Rating, 1e-9)
	require.NotNil(t, product.ReviewCount)
	assert.Equal(t, 12345, *product.ReviewCount)
	assert.Equal(t, "https://m.media-amazon.com/images/I/61scale.jpg", product.ImageURL)
}

func TestExtractProductFallbacks(t *testing.T) {
	p := NewAmazonParser()

	html := `<div class="zg-grid-general-faceout">
		<a class="a-link-normal" href="https://www.amazon.co.uk/gp/product/B000TEST01">USB Cable 2m</a>
		<span class="a-offscreen">£1,049.00</span>
		<img src="/relative.jpg">
	</div>`

	product, ok := p.ExtractProduct(card(t, html), categoryURL)
	require.True(t, ok)

	assert.Equal(t, "USB Cable 2m", product.Title)
	assert.Equal(t, "B000TEST01", product.ASIN)
	require.NotNil(t, product.Price)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("1049")))
	assert.False(t, product.Prime)
	assert.Nil(t, product.Rating)
	assert.Nil(t, product.ReviewCount)
	assert.Empty(t, product.ImageURL)
}

func TestExtractProductTitleFromLinkAttribute(t *testing.T) {
	p := NewAmazonParser()

	html := `<div><a class="a-link-normal" href="/x/dp/B0ATTRTEST" title="  Garden Hose  "><img src="x"></a></div>`

	product, ok := p.ExtractProduct(card(t, html), categoryURL)
	require.True(t, ok)
	assert.Equal(t, "Garden Hose", product.Title)
	assert.Nil(t, product.Price)
}

func TestExtractProductWithoutLink(t *testing.T) {
	p := NewAmazonParser()

	_, ok := p.ExtractProduct(card(t, `<div><span class="a-color-price">£5.00</span></div>`), categoryURL)
	assert.False(t, ok)
}

func TestExtractProductTruncatesTitle(t *testing.T) {
	p := NewAmazonParser()

	long := strings.Repeat("word ", 60)
	html := `<div><a class="a-link-normal" href="/dp/B0LONGTITL">` + long + `</a></div>`

	product, ok := p.ExtractProduct(card(t, html), categoryURL)
	require.True(t, ok)
	assert.Len(t, []rune(product.Title), 180)
}

func TestExtractASIN(t *testing.T) {
	p := NewAmazonParser()

	tests := []struct {
		href     string
		expected string
	}{
		{"/Some-Thing/dp/B08N5WRWNW/ref=zg", "B08N5WRWNW"},
		{"https://www.amazon.co.uk/gp/product/B01ABCDEFG?th=1", "B01ABCDEFG"},
		{"/dp/short", ""},
		{"/gp/bestsellers/kitchen", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.ExtractASIN(tt.href))
		})
	}
}

func TestParseBestsellerPage(t *testing.T) {
	p := NewAmazonParser()

	html := `<html><body>` + bestsellerCard + `
		<div class="zg-grid-general-faceout"><span>no link here</span></div>
		<div class="zg-grid-general-faceout"><a class="a-link-normal" href="/dp/B0NOPRICE1">No price item</a></div>
	</body></html>`

	products, err := p.ParseBestsellerPage(html, categoryURL)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[0].HasPrice())
	assert.False(t, products[1].HasPrice())
}

func TestParseBestsellerPageFallbackCards(t *testing.T) {
	p := NewAmazonParser()

	html := `<html><body>
		<div class="a-section a-spacing-none aok-relative">
			<a class="a-link-normal" href="/dp/B0FALLBACK">Fallback card</a>
			<span class="a-color-price">£3.00</span>
		</div>
	</body></html>`

	products, err := p.ParseBestsellerPage(html, categoryURL)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "B0FALLBACK", products[0].ASIN)
}

func TestParseBestsellerPageEmpty(t *testing.T) {
	p := NewAmazonParser()

	_, err := p.ParseBestsellerPage("   ", categoryURL)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParseCategoryLinks(t *testing.T) {
	p := NewAmazonParser()

	html := `<html><body>
		<a href="/gp/bestsellers/toys/ref=zg_bs_nav_toys_0">Toys</a>
		<a href="/gp/bestsellers/kitchen">Kitchen</a>
		<a href="/gp/bestsellers/kitchen?ref_=nav">Kitchen again</a>
		<a href="https://www.amazon.co.uk/gp/bestsellers/electronics/">Electronics</a>
		<a href="/gp/bestsellers/electronics/560798">Subcategory</a>
		<a href="/gp/bestsellers/">Root</a>
		<a href="/dp/B000000000">Product</a>
	</body></html>`

	links, err := p.ParseCategoryLinks(html, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.amazon.co.uk/gp/bestsellers/electronics/",
		"https://www.amazon.co.uk/gp/bestsellers/kitchen",
	}, links)

	limited, err := p.ParseCategoryLinks(html, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := p.ParseCategoryLinks(html, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
