package game

import "commodex/internal/catalog"

func (l *Ledger) recordSale(amount float64)     { l.Sales += amount }
func (l *Ledger) recordPurchase(amount float64) { l.Purchases += amount }

// rollLedger closes the cycle once CycleProgress reaches CycleLength.
func rollLedger(next *State) bool {
	if next.CycleProgress < CycleLength {
		return false
	}
	next.LastLedger = next.Ledger
	next.Ledger = Ledger{}
	next.CycleProgress = 0
	return true
}

// Net is income minus every spending category over the whole session.
func (l LifetimeStats) Net() float64 {
	income := l.Sales + l.FacilityRefunds
	spent := l.Purchases + l.ProductionCost + l.Construction + l.Upgrades + l.Interest + l.Taxes
	return income - spent
}

func InventoryValue(s State, cat *catalog.Catalog) float64 {
	var total float64
	for _, c := range cat.Commodities {
		total += float64(s.Inventory[c.ID]) * s.Prices[c.ID].Current
	}
	return total
}

// InfrastructureValue values every facility at what it would cost to rebuild.
func InfrastructureValue(s State, cat *catalog.Catalog) float64 {
	var total float64
	for _, c := range cat.Commodities {
		if f, ok := s.Facilities[c.ID]; ok {
			total += TotalInvested(c, f.Level)
		}
	}
	return total
}

func NetEquity(s State, cat *catalog.Catalog) float64 {
	return s.Cash + InventoryValue(s, cat) + InfrastructureValue(s, cat) - s.Debt
}

func LifetimeNet(s State) float64 {
	return s.Lifetime.Net()
}
