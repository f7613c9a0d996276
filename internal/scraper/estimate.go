package scraper

import (
	"github.com/shopspring/decimal"
)

// Estimate is the projected economics of buying on Amazon and reselling on
// eBay at the best listing's price.
type Estimate struct {
	Total  decimal.Decimal
	Fee    decimal.Decimal
	Profit decimal.Decimal
	Margin decimal.Decimal
}

// EstimateProfit computes total sale price, marketplace fee, profit and
// margin. ok is false when the total is not positive, since margin is then
// undefined.
func EstimateProfit(amazonPrice, listingPrice, shipping, feeRate, fixedFee decimal.Decimal) (Estimate, bool) {
	total := listingPrice.Add(shipping)
	if !total.IsPositive() {
		return Estimate{}, false
	}

	fee := total.Mul(feeRate).Add(fixedFee)
	profit := total.Sub(amazonPrice).Sub(fee)

	return Estimate{
		Total:  total,
		Fee:    fee,
		Profit: profit,
		Margin: profit.DivRound(total, 8),
	}, true
}
