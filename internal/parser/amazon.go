package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/arbitrage-scanner/internal/models"
)

const AmazonBaseURL = "https://www.amazon.co.uk"

type AmazonParser struct {
	base            *url.URL
	asinPatterns    []*regexp.Regexp
	categoryPattern *regexp.Regexp

	link    Chain[*goquery.Selection]
	title   Chain[string]
	price   Chain[string]
	rating  Chain[string]
	reviews Chain[string]
}

func NewAmazonParser() *AmazonParser {
	base, _ := url.Parse(AmazonBaseURL)

	return &AmazonParser{
		base: base,
		asinPatterns: []*regexp.Regexp{
			regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
			regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
		},
		categoryPattern: regexp.MustCompile(`/gp/bestsellers/[^/]+/?$`),
		link: Chain[*goquery.Selection]{
			First("a.a-link-normal:not(.aok-block)"),
			First("a.a-link-normal"),
		},
		title: Chain[string]{
			TextOf("div._cDEzb_p13n-sc-css-line-clamp-3_g3dy1, span.a-size-small, span.a-size-base, span._cDEzb_p13n-sc-css-line-clamp-2_EWgCb"),
		},
		price: Chain[string]{
			TextOf("span._cDEzb_p13n-sc-price_3mJ9Z, span.a-color-price"),
			TextOf("span.a-offscreen"),
		},
		rating: Chain[string]{
			TextOf("i.a-icon-star-small span.a-icon-alt, span.a-icon-alt"),
		},
		reviews: Chain[string]{
			TextOf("a[href*='/product-reviews/'] span.a-size-small"),
			TextOf("span.a-size-base, span.a-size-small"),
		},
	}
}

// BaseURL returns the site root links are resolved against.
func (p *AmazonParser) BaseURL() string {
	return p.base.String()
}

// ExtractASIN pulls the 10-character product code out of a detail link.
func (p *AmazonParser) ExtractASIN(href string) string {
	for _, pattern := range p.asinPatterns {
		if m := pattern.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractProduct reads one best-seller card. It is false when the card has no
// product link.
func (p *AmazonParser) ExtractProduct(card *goquery.Selection, categoryURL string) (*models.AmazonProduct, bool) {
	link, ok := p.link.Run(card)
	if !ok {
		return nil, false
	}

	href, _ := link.Attr("href")
	product := &models.AmazonProduct{
		URL:         resolve(p.base, href),
		ASIN:        p.ExtractASIN(href),
		CategoryURL: categoryURL,
	}

	title, ok := p.title.Run(card)
	if !ok {
		title, _ = Chain[string]{OwnAttr("title"), OwnText()}.Run(link)
	}
	product.Title = models.Truncate(strings.TrimSpace(title), models.MaxAmazonTitleLen)

	if text, ok := p.price.Run(card); ok {
		if price, ok := ParseCurrency(text); ok {
			product.Price = &price
		}
	}

	product.Prime = card.Find("i.a-icon-prime, span[aria-label*='Prime']").Length() > 0

	if text, ok := p.rating.Run(card); ok {
		if rating, ok := ParseRating(text); ok {
			product.Rating = &rating
		}
	}

	if text, ok := p.reviews.Run(card); ok {
		if n, ok := ParseInt(text); ok {
			product.ReviewCount = &n
		}
	}

	if src, ok := AttrOf("img[src^='http']", "src")(card); ok {
		product.ImageURL = src
	}

	return product, true
}

// ParseBestsellerPage extracts every card on a best-seller page. Cards
// without a link are skipped; price filtering is left to the caller.
func (p *AmazonParser) ParseBestsellerPage(html, categoryURL string) ([]*models.AmazonProduct, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	cards := doc.Find("div.zg-grid-general-faceout, div._cDEzb_grid-cell_1uMOS")
	if cards.Length() == 0 {
		cards = doc.Find("div.a-section.a-spacing-none.aok-relative")
	}

	var products []*models.AmazonProduct
	cards.Each(func(i int, card *goquery.Selection) {
		if product, ok := p.ExtractProduct(card, categoryURL); ok {
			products = append(products, product)
		}
	})

	return products, nil
}

// ParseCategoryLinks collects distinct best-seller category URLs, at most
// max, in lexicographic order.
func (p *AmazonParser) ParseCategoryLinks(html string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	doc, err := newDocument(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find("a[href*='/gp/bestsellers/']").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if href == "" {
			return true
		}

		u, err := url.Parse(resolve(p.base, href))
		if err != nil || !p.categoryPattern.MatchString(u.Path) {
			return true
		}

		u.RawQuery = ""
		u.Fragment = ""
		seen[u.String()] = struct{}{}
		return len(seen) < max
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)

	return links, nil
}
