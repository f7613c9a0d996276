package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

type options struct {
	autoDiscover  bool
	categories    []string
	maxCategories int
	filters       models.Filters
	outputDir     string
	writeCSV      bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		discover      = fs.Bool("discover", true, "Auto-discover Amazon best-seller categories")
		categoryList  = fs.String("categories", "", "Comma-separated best-seller category URLs (disables -discover)")
		categoryFile  = fs.String("categories-file", "", "File with best-seller category URLs, one per line (disables -discover)")
		maxCategories = fs.Int("max-categories", 8, "How many categories to discover (3-30)")
		minProfit     = fs.Float64("min-profit", 0, "Minimum estimated profit in GBP")
		minMarginPct  = fs.Float64("min-margin", 0, "Minimum estimated margin in percent (0-50)")
		minSold       = fs.Int("min-sold", 0, "Minimum eBay sold-recently count (0-200)")
		feeRate       = fs.Float64("fee-rate", 0.13, "eBay fee rate (0.13 = 13%)")
		fixedFee      = fs.Float64("fixed-fee", 0.30, "eBay fixed fee in GBP")
		maxItems      = fs.Int("max-items", 30, "Max Amazon items per category (10-200)")
		maxListings   = fs.Int("max-ebay-results", 8, "Max eBay results to scan (3-20)")
		queryWords    = fs.Int("query-words", 8, "Use the first N title words for the eBay query (4-20)")
		avoid         = fs.String("avoid", strings.Join(models.DefaultAvoidKeywords(), ","), "Avoid keywords, comma-separated")
		outputDir     = fs.String("out", ".", "Directory for the CSV report")
		noCSV         = fs.Bool("no-csv", false, "Do not write a CSV report")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{
		autoDiscover:  *discover,
		maxCategories: *maxCategories,
		outputDir:     *outputDir,
		writeCSV:      !*noCSV,
	}

	if *categoryList != "" {
		opts.categories = append(opts.categories, splitList(*categoryList, ",")...)
	}
	if *categoryFile != "" {
		lines, err := readLines(*categoryFile)
		if err != nil {
			return nil, err
		}
		opts.categories = append(opts.categories, lines...)
	}
	if *categoryList != "" || *categoryFile != "" {
		opts.autoDiscover = false
	}
	opts.categories = lo.Uniq(opts.categories)

	if opts.autoDiscover && (opts.maxCategories < 3 || opts.maxCategories > 30) {
		return nil, fmt.Errorf("-max-categories must be between 3 and 30, got %d", opts.maxCategories)
	}
	if *minMarginPct < 0 || *minMarginPct > 50 {
		return nil, fmt.Errorf("-min-margin must be between 0 and 50, got %g", *minMarginPct)
	}
	if *minSold > 200 {
		return nil, fmt.Errorf("-min-sold must be at most 200, got %d", *minSold)
	}
	if *feeRate > 0.3 {
		return nil, fmt.Errorf("-fee-rate must be at most 0.3, got %g", *feeRate)
	}
	if *fixedFee > 2 {
		return nil, fmt.Errorf("-fixed-fee must be at most 2, got %g", *fixedFee)
	}

	opts.filters = models.Filters{
		MinProfit:           decimal.NewFromFloat(*minProfit),
		MinMargin:           decimal.NewFromFloat(*minMarginPct).Div(decimal.NewFromInt(100)),
		MinRecentSales:      *minSold,
		FeeRate:             decimal.NewFromFloat(*feeRate),
		FixedFee:            decimal.NewFromFloat(*fixedFee),
		MaxItemsPerCategory: *maxItems,
		MaxListingResults:   *maxListings,
		AvoidKeywords:       splitList(*avoid, ","),
		QueryWordCount:      *queryWords,
	}
	if err := opts.filters.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

func splitList(s, sep string) []string {
	parts := lo.Map(strings.Split(s, sep), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Compact(parts)
}

// readLines reads non-blank lines, skipping # comments.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	return lines, nil
}
