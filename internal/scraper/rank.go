package scraper

import (
	"sort"

	"github.com/samber/lo"

	"github.com/maltedev/arbitrage-scanner/internal/models"
)

// Qualifies reports whether an opportunity meets every threshold.
func Qualifies(o models.Opportunity, f models.Filters) bool {
	return o.Profit.GreaterThanOrEqual(f.MinProfit) &&
		o.Margin.GreaterThanOrEqual(f.MinMargin) &&
		o.SoldRecent >= f.MinRecentSales
}

// Rank orders rows by profit, highest first, breaking ties by recent sales.
// Equal rows keep their input order.
func Rank(rows []models.Opportunity) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Profit.Cmp(rows[j].Profit); c != 0 {
			return c > 0
		}
		return rows[i].SoldRecent > rows[j].SoldRecent
	})
}

// FilterAndRank returns the qualifying rows in rank order.
func FilterAndRank(rows []models.Opportunity, f models.Filters) []models.Opportunity {
	kept := lo.Filter(rows, func(o models.Opportunity, _ int) bool {
		return Qualifies(o, f)
	})
	Rank(kept)
	return kept
}
