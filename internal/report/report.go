package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/maltedev/arbitrage-scanner/internal/models"
	"github.com/maltedev/arbitrage-scanner/internal/parser"
)

// Columns is the CSV header, in output order.
var Columns = []string{
	"title", "amazon_price", "ebay_price", "ebay_shipping", "ebay_total_price", "estimated_ebay_fee",
	"est_profit_gbp", "est_margin_pct", "sold_recent", "prime", "rating", "reviews",
	"amazon_url", "ebay_url", "asin", "category_url", "image_url",
}

// FileName returns the report file name for a run started at t.
func FileName(t time.Time) string {
	return "comparative_report_" + t.Format("20060102_1504") + ".csv"
}

// WriteCSV writes rows with a header line. Margin is written as a
// percentage.
func WriteCSV(w io.Writer, rows []models.Opportunity) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range rows {
		if err := cw.Write(record(&rows[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func record(o *models.Opportunity) []string {
	return []string{
		o.Title,
		o.AmazonPrice.StringFixed(2),
		o.EbayPrice.StringFixed(2),
		o.EbayShipping.StringFixed(2),
		o.EbayTotal.StringFixed(2),
		o.EstimatedFee.StringFixed(2),
		o.Profit.StringFixed(2),
		o.MarginPercent().StringFixed(2),
		strconv.Itoa(o.SoldRecent),
		formatBool(o.Prime),
		formatRating(o.Rating),
		formatReviews(o.Reviews),
		o.AmazonURL,
		o.EbayURL,
		o.ASIN,
		o.CategoryURL,
		o.ImageURL,
	}
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func formatReviews(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// WriteTable prints a compact aligned view of rows for terminals.
func WriteTable(w io.Writer, rows []models.Opportunity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tTITLE\tAMAZON\tEBAY TOTAL\tFEE\tPROFIT\tMARGIN\tSOLD\tPRIME")
	for i := range rows {
		o := &rows[i]
		prime := ""
		if o.Prime {
			prime = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s%%\t%d\t%s\n",
			i+1,
			models.Truncate(o.Title, 48),
			parser.FormatGBP(o.AmazonPrice),
			parser.FormatGBP(o.EbayTotal),
			parser.FormatGBP(o.EstimatedFee),
			parser.FormatGBP(o.Profit),
			o.MarginPercent().StringFixed(2),
			o.SoldRecent,
			prime,
		)
	}

	return tw.Flush()
}

// Summary prints the one-line outcome of a scan.
func Summary(w io.Writer, rows, categories int) {
	if rows == 0 {
		color.New(color.FgYellow).Fprintln(w, "No items matched your filters. Lower the thresholds or try different categories.")
		return
	}
	color.New(color.FgGreen).Fprintf(w, "Found %d comparative opportunities across %d categories\n", rows, categories)
}
