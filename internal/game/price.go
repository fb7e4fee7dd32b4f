package game

import (
	"fmt"
	"math"

	"commodex/internal/catalog"
)

// NextPrice advances one commodity by a day: mean reversion toward the
// (event-adjusted) base price plus a bounded uniform shock, floored at 10% of base.
func NextPrice(c catalog.Commodity, prev MarketPrice, ev *Event, r Rand) MarketPrice {
	target := c.BasePrice
	if ev != nil && ev.Category.Covers(c.Category) {
		target *= ev.Multiplier
	}
	shock := (r.Float64()*2 - 1) * c.Volatility
	gravity := (target - prev.Current) * GravityRate
	next := math.Max(c.BasePrice*PriceFloorRatio, (prev.Current+gravity)*(1+shock))
	if !(next > 0) {
		panic(fmt.Sprintf("game: price for %s fell to %v", c.ID, next))
	}

	trend := TrendFlat
	switch {
	case next > prev.Current:
		trend = TrendUp
	case next < prev.Current:
		trend = TrendDown
	}
	return MarketPrice{
		Current: next,
		History: appendHistory(prev.History, next),
		Trend:   trend,
	}
}

func appendHistory(history []float64, v float64) []float64 {
	start := 0
	if len(history) >= HistoryLimit {
		start = len(history) - HistoryLimit + 1
	}
	out := make([]float64, 0, HistoryLimit)
	out = append(out, history[start:]...)
	return append(out, v)
}

// PriceChangePercent is the day-over-day change of the last two history points.
func PriceChangePercent(history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	prev := history[len(history)-2]
	if prev == 0 {
		return 0
	}
	return (history[len(history)-1] - prev) / prev * 100
}

func initialPrice(c catalog.Commodity) MarketPrice {
	return MarketPrice{
		Current: c.BasePrice,
		History: []float64{c.BasePrice},
		Trend:   TrendFlat,
	}
}
