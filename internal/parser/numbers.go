package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyPattern = regexp.MustCompile(`£\s*([0-9]+(?:\.[0-9]{1,2})?)`)
	ratingPattern   = regexp.MustCompile(`([0-9]+\.[0-9])`)
	soldPattern     = regexp.MustCompile(`([0-9][0-9,.]*)\s+sold`)
	nonDigits       = regexp.MustCompile(`[^0-9]`)
)

// ParseCurrency returns the first pound amount in text. Grouping commas are
// ignored and at most two decimal places are read.
func ParseCurrency(text string) (decimal.Decimal, bool) {
	if text == "" {
		return decimal.Zero, false
	}

	m := currencyPattern.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if m == nil {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatGBP renders d as "£1,234.50".
func FormatGBP(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("£")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// ParseInt drops every non-digit and parses what is left.
func ParseInt(text string) (int, bool) {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseRating reads a star rating like "4.5 out of 5 stars".
func ParseRating(text string) (float64, bool) {
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	r, err := strconv.ParseFloat(m[1], 64)
	if err != nil || r < 0 || r > 5 {
		return 0, false
	}
	return r, true
}

// ParseSold reads the quantity from labels like "1,234 sold".
func ParseSold(text string) (int, bool) {
	m := soldPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
