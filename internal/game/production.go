package game

import (
	"math"

	"commodex/internal/catalog"
)

// Unlock, upgrade and sell prices all come from one geometric series anchored
// at UnlockCost, so every caller agrees on what a facility is worth.

func UnlockCost(c catalog.Commodity) float64 {
	return c.BasePrice * UnlockCostMultiplier
}

// UpgradeCost is the price of moving a facility from level to level+1.
func UpgradeCost(c catalog.Commodity, level int) float64 {
	return math.Floor(UnlockCost(c) * math.Pow(UpgradeCostGrowth, float64(level)))
}

// TotalInvested is the replacement cost of a facility at level.
func TotalInvested(c catalog.Commodity, level int) float64 {
	total := UnlockCost(c)
	for i := 1; i < level; i++ {
		total += UpgradeCost(c, i)
	}
	return total
}

func SellValue(c catalog.Commodity, level int) float64 {
	return math.Floor(TotalInvested(c, level) * SellRefundRatio)
}

func DailyRunningCost(c catalog.Commodity, level int) float64 {
	return math.Floor(c.ProductionCost * math.Pow(RunningCostGrowth, float64(level-1)))
}

func ProgressIncrement(level int) float64 {
	return 5 + float64(level)*10
}

// runProduction advances every facility on next in catalog order and returns
// the day's total running cost. The caller debits it once.
func runProduction(next *State, cat *catalog.Catalog) float64 {
	var total float64
	for _, c := range cat.Commodities {
		f, ok := next.Facilities[c.ID]
		if !ok || !f.Producing {
			continue
		}
		if next.Cash <= 0 {
			f.Producing = false
			next.Facilities[c.ID] = f
			continue
		}
		total += DailyRunningCost(c, f.Level)
		f.Progress += ProgressIncrement(f.Level)
		if f.Progress >= ProgressPerCycle {
			next.Inventory[c.ID] += c.ProductionYield
			f.Progress = math.Mod(f.Progress, ProgressPerCycle)
		}
		next.Facilities[c.ID] = f
	}
	return total
}
