package game

import (
	"errors"
	"fmt"

	"commodex/internal/catalog"

	"github.com/google/uuid"
)

// Engine holds what every transition needs besides the state itself: the
// catalog, the session rules and the random source. Its methods never mutate
// the State they receive.
type Engine struct {
	catalog *catalog.Catalog
	rules   Rules
	rand    Rand
}

func NewEngine(cat *catalog.Catalog, rules Rules, r Rand) (*Engine, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("engine: nil random source")
	}
	return &Engine{catalog: cat, rules: rules.withDefaults(), rand: r}, nil
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }
func (e *Engine) Rules() Rules              { return e.rules }

// NewState opens a fresh session on day 1.
func NewState(cat *catalog.Catalog, initialCash float64) State {
	s := State{
		SessionID:  uuid.NewString(),
		Cash:       initialCash,
		Day:        1,
		Inventory:  make(map[string]int, len(cat.Commodities)),
		Facilities: make(map[string]Facility),
		Prices:     make(map[string]MarketPrice, len(cat.Commodities)),
		TaxRate:    InitialTaxRate,
		NextTaxDay: FirstTaxDay,
	}
	for _, c := range cat.Commodities {
		s.Inventory[c.ID] = 0
		s.Prices[c.ID] = initialPrice(c)
	}
	return s
}

func (e *Engine) NewState() State {
	return NewState(e.catalog, e.rules.InitialCash)
}

// AdvanceDay is the per-tick transition. Steps run in a fixed order so a
// seeded source reproduces the same run.
func (e *Engine) AdvanceDay(s State) State {
	if s.Bankrupt {
		return s
	}
	next := s.Clone()

	next.Day++
	next.CycleProgress++

	next.ActiveEvent = stepEvent(next.ActiveEvent, next.CycleProgress, e.catalog.Events, e.rand)

	for _, c := range e.catalog.Commodities {
		next.Prices[c.ID] = NextPrice(c, next.Prices[c.ID], next.ActiveEvent, e.rand)
	}

	applyTax(&next, e.catalog, e.rand)
	accrueInterest(&next)

	cost := runProduction(&next, e.catalog)
	next.Cash -= cost
	next.Ledger.ProductionCost += cost
	next.Lifetime.ProductionCost += cost

	rollLedger(&next)
	return e.settle(next)
}

// settle flags the session bankrupt once net equity drops below the threshold.
func (e *Engine) settle(next State) State {
	if !next.Bankrupt && NetEquity(next, e.catalog) < e.rules.BankruptcyThreshold {
		next.Bankrupt = true
	}
	return next
}

func (e *Engine) commodity(id string) (catalog.Commodity, error) {
	c, ok := e.catalog.Lookup(id)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrUnknownCommodity, id)
	}
	return c, nil
}

// Dashboard assembles the read model for s.
func (e *Engine) Dashboard(s State, paused bool) Dashboard {
	out := Dashboard{
		State:               s,
		Paused:              paused,
		InventoryValue:      InventoryValue(s, e.catalog),
		InfrastructureValue: InfrastructureValue(s, e.catalog),
		NetEquity:           NetEquity(s, e.catalog),
		LifetimeNet:         LifetimeNet(s),
	}
	for _, c := range e.catalog.Commodities {
		p := s.Prices[c.ID]
		out.Market = append(out.Market, MarketView{
			Commodity:     c.ID,
			Name:          c.Name,
			Category:      string(c.Category),
			Price:         p.Current,
			ChangePercent: PriceChangePercent(p.History),
			Trend:         p.Trend,
			Owned:         s.Inventory[c.ID],
			EventActive:   s.ActiveEvent != nil && s.ActiveEvent.Category.Covers(c.Category),
		})
		if f, ok := s.Facilities[c.ID]; ok {
			out.Facilities = append(out.Facilities, FacilityView{
				Facility:    f,
				Name:        c.Name,
				DailyCost:   DailyRunningCost(c, f.Level),
				UpgradeCost: UpgradeCost(c, f.Level),
				SellValue:   SellValue(c, f.Level),
			})
		}
	}
	return out
}

// Notices describes what a transition from prev to next is worth telling the player.
func Notices(prev, next State) []Notice {
	var out []Notice
	if next.NextTaxDay != prev.NextTaxDay && next.Day > prev.Day {
		out = append(out, Notice{
			Kind:    "tax_billed",
			Day:     next.Day,
			Amount:  next.LastTaxBilled,
			Message: fmt.Sprintf("Tax billed: %.2f. Next rate %.1f%% due day %d", next.LastTaxBilled, next.TaxRate*100, next.NextTaxDay),
		})
	}
	started := next.ActiveEvent != nil && next.ActiveEvent.RemainingDays == next.ActiveEvent.Duration && next.Day > prev.Day
	if prev.ActiveEvent != nil && (next.ActiveEvent == nil || started) {
		out = append(out, Notice{
			Kind:    "event_ended",
			Day:     next.Day,
			Message: prev.ActiveEvent.Name + " has ended",
		})
	}
	if started {
		ev := next.ActiveEvent
		out = append(out, Notice{
			Kind:    "event_started",
			Day:     next.Day,
			Message: fmt.Sprintf("%s: %s (%s x%.2f for %d days)", ev.Name, ev.Description, ev.Category, ev.Multiplier, ev.Duration),
		})
	}
	if prev.CycleProgress != 0 && next.CycleProgress == 0 && next.Day > prev.Day {
		out = append(out, Notice{
			Kind:    "cycle_closed",
			Day:     next.Day,
			Amount:  next.LastLedger.Sales - next.LastLedger.Purchases - next.LastLedger.ProductionCost,
			Message: "Ten-day cycle closed",
		})
	}
	if !prev.Bankrupt && next.Bankrupt {
		out = append(out, Notice{
			Kind:    "bankrupt",
			Day:     next.Day,
			Message: "Net equity fell below the insolvency threshold. Reset to play again.",
		})
	}
	return out
}
