package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/shopspring/decimal"
)

const EbaySearchURL = "https://www.ebay.co.uk/sch/i.html"

type EbayParser struct {
	title    Chain[string]
	price    Chain[string]
	shipping Chain[string]
	link     Chain[string]
	sold     Chain[string]
}

func NewEbayParser() *EbayParser {
	return &EbayParser{
		title: Chain[string]{
			TextOf("div.s-item__title span[role='heading'], h3.s-item__title"),
		},
		price: Chain[string]{
			TextOf("span.s-item__price"),
		},
		shipping: Chain[string]{
			TextOf("span.s-item__shipping, span.s-item__logisticsCost"),
		},
		link: Chain[string]{
			AttrOf("a.s-item__link", "href"),
		},
		sold: Chain[string]{
			TextOf("span.s-item__hotness"),
			TextOf("span.BOLD"),
			TextOf("span.s-item__quantitySold"),
			TextOf("span[aria-label*='sold']"),
		},
	}
}

// ActiveSearchURL builds a search for new, fixed-price, UK-located listings
// sorted by best match.
func ActiveSearchURL(query string) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_BIN", "1")
	params.Set("LH_PrefLoc", "1")
	params.Set("LH_ItemCondition", "1000")
	params.Set("rt", "nc")
	params.Set("_sop", "15")
	return EbaySearchURL + "?" + params.Encode()
}

// SoldSearchURL builds a search over sold and completed listings.
func SoldSearchURL(query string) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("rt", "nc")
	params.Set("_sop", "10")
	return EbaySearchURL + "?" + params.Encode()
}

func resultCards(doc *goquery.Document, max int) *goquery.Selection {
	items := doc.Find("li.s-item")
	if max > 0 && items.Length() > max {
		items = items.Slice(0, max)
	}
	return items
}

// ParseListings reads up to max result cards. Cards without a price are
// dropped. fallbackURL is used when a card has no link of its own.
func (p *EbayParser) ParseListings(html string, max int, fallbackURL string) ([]*models.EbayListing, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var listings []*models.EbayListing
	resultCards(doc, max).Each(func(i int, item *goquery.Selection) {
		text, _ := p.price.Run(item)
		price, ok := ParseCurrency(text)
		if !ok {
			return
		}

		title, _ := p.title.Run(item)
		shippingText, _ := p.shipping.Run(item)
		shipping, ok := ParseCurrency(shippingText)
		if !ok {
			shipping = decimal.Zero
		}

		link, ok := p.link.Run(item)
		if !ok {
			link = fallbackURL
		}

		listings = append(listings, &models.EbayListing{
			Title:    models.Truncate(strings.TrimSpace(title), models.MaxListingTitleLen),
			Price:    &price,
			Shipping: shipping,
			URL:      link,
		})
	})

	return listings, nil
}

// BestListing returns the listing with the lowest price plus shipping. The
// first one wins on ties.
func BestListing(listings []*models.EbayListing) *models.EbayListing {
	var best *models.EbayListing
	var bestTotal decimal.Decimal

	for _, l := range listings {
		total, ok := l.Total()
		if !ok {
			continue
		}
		if best == nil || total.LessThan(bestTotal) {
			best = l
			bestTotal = total
		}
	}
	return best
}

// ParseSoldCount sums the "N sold" labels of up to max sold-listing cards.
// This counts across listings, so it is a demand signal rather than an exact
// sales figure.
func (p *EbayParser) ParseSoldCount(html string, max int) (int, error) {
	doc, err := newDocument(html)
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	total := 0
	resultCards(doc, max).Each(func(i int, item *goquery.Selection) {
		label, ok := p.sold.Run(item)
		if !ok {
			return
		}
		if n, ok := ParseSold(label); ok {
			total += n
		}
	})

	return total, nil
}
