package game

import (
	"math"

	"commodex/internal/catalog"
)

// applyTax bills net worth once the day reaches NextTaxDay, then draws the
// next rate and schedules the following bill. Returns the amount billed.
func applyTax(next *State, cat *catalog.Catalog, r Rand) (float64, bool) {
	if next.Day < next.NextTaxDay {
		return 0, false
	}
	bill := math.Max(0, NetEquity(*next, cat)*next.TaxRate)
	next.Cash -= bill
	next.Lifetime.Taxes += bill
	next.LastTaxBilled = bill
	next.TaxRate = MinTaxRate + r.Float64()*(MaxTaxRate-MinTaxRate)
	next.NextTaxDay += TaxPeriodDays
	return bill, true
}
