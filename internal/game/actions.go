package game

import (
	"fmt"
	"math"
)

type ActionKind string

const (
	ActionAdvanceDay   ActionKind = "advance_day"
	ActionTrade        ActionKind = "trade"
	ActionUnlock       ActionKind = "unlock"
	ActionUpgrade      ActionKind = "upgrade"
	ActionSellFacility ActionKind = "sell_facility"
	ActionToggle       ActionKind = "toggle"
	ActionLoan         ActionKind = "loan"
	ActionRepay        ActionKind = "repay"
)

// Action is one input to the reducer. Quantity is signed for trades
// (positive buys, negative sells); Amount carries loan and repay sums.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Commodity string     `json:"commodity,omitempty"`
	Quantity  int        `json:"quantity,omitempty"`
	Amount    float64    `json:"amount,omitempty"`
}

// Apply runs a against s. On rejection it returns s itself and the reason.
func (e *Engine) Apply(s State, a Action) (State, error) {
	if s.Bankrupt {
		return s, ErrGameOver
	}
	var (
		next State
		err  error
	)
	switch a.Kind {
	case ActionAdvanceDay:
		return e.AdvanceDay(s), nil
	case ActionTrade:
		next, err = e.trade(s, a.Commodity, a.Quantity)
	case ActionUnlock:
		next, err = e.unlock(s, a.Commodity)
	case ActionUpgrade:
		next, err = e.upgrade(s, a.Commodity)
	case ActionSellFacility:
		next, err = e.sellFacility(s, a.Commodity)
	case ActionToggle:
		next, err = e.toggle(s, a.Commodity)
	case ActionLoan:
		next, err = e.takeLoan(s, a.Amount)
	case ActionRepay:
		next, err = e.repay(s, a.Amount)
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
	if err != nil {
		return s, err
	}
	return e.settle(next), nil
}

func (e *Engine) Trade(s State, commodityID string, quantity int) State {
	next, _ := e.Apply(s, Action{Kind: ActionTrade, Commodity: commodityID, Quantity: quantity})
	return next
}

func (e *Engine) UnlockFacility(s State, commodityID string) State {
	next, _ := e.Apply(s, Action{Kind: ActionUnlock, Commodity: commodityID})
	return next
}

func (e *Engine) UpgradeFacility(s State, commodityID string) State {
	next, _ := e.Apply(s, Action{Kind: ActionUpgrade, Commodity: commodityID})
	return next
}

func (e *Engine) SellFacility(s State, commodityID string) State {
	next, _ := e.Apply(s, Action{Kind: ActionSellFacility, Commodity: commodityID})
	return next
}

func (e *Engine) ToggleProduction(s State, commodityID string) State {
	next, _ := e.Apply(s, Action{Kind: ActionToggle, Commodity: commodityID})
	return next
}

func (e *Engine) TakeLoan(s State, amount float64) State {
	next, _ := e.Apply(s, Action{Kind: ActionLoan, Amount: amount})
	return next
}

func (e *Engine) Repay(s State, amount float64) State {
	next, _ := e.Apply(s, Action{Kind: ActionRepay, Amount: amount})
	return next
}

func (e *Engine) trade(s State, commodityID string, quantity int) (State, error) {
	if _, err := e.commodity(commodityID); err != nil {
		return s, err
	}
	if quantity == 0 {
		return s, ErrInvalidAmount
	}
	price := s.Prices[commodityID].Current
	if quantity > 0 {
		cost := price * float64(quantity)
		if cost > s.Cash {
			return s, ErrInsufficientFunds
		}
		next := s.Clone()
		next.Cash -= cost
		next.Inventory[commodityID] += quantity
		next.Ledger.recordPurchase(cost)
		next.Lifetime.Purchases += cost
		return next, nil
	}

	// Compared on the negative side so math.MinInt cannot wrap.
	if quantity < -s.Inventory[commodityID] {
		return s, ErrInsufficientInventory
	}
	qty := -quantity
	proceeds := price * float64(qty)
	next := s.Clone()
	next.Cash += proceeds
	next.Inventory[commodityID] -= qty
	next.Ledger.recordSale(proceeds)
	next.Lifetime.Sales += proceeds
	return next, nil
}

func (e *Engine) unlock(s State, commodityID string) (State, error) {
	c, err := e.commodity(commodityID)
	if err != nil {
		return s, err
	}
	if _, exists := s.Facilities[commodityID]; exists {
		return s, ErrFacilityExists
	}
	cost := UnlockCost(c)
	if s.Cash < cost {
		return s, ErrInsufficientFunds
	}
	next := s.Clone()
	next.Cash -= cost
	next.Lifetime.Construction += cost
	next.Facilities[commodityID] = Facility{
		Commodity: commodityID,
		Level:     1,
		Producing: true,
	}
	return next, nil
}

func (e *Engine) upgrade(s State, commodityID string) (State, error) {
	c, err := e.commodity(commodityID)
	if err != nil {
		return s, err
	}
	f, exists := s.Facilities[commodityID]
	if !exists {
		return s, ErrNoFacility
	}
	cost := UpgradeCost(c, f.Level)
	if s.Cash < cost {
		return s, ErrInsufficientFunds
	}
	next := s.Clone()
	next.Cash -= cost
	next.Lifetime.Upgrades += cost
	f.Level++
	next.Facilities[commodityID] = f
	return next, nil
}

func (e *Engine) sellFacility(s State, commodityID string) (State, error) {
	c, err := e.commodity(commodityID)
	if err != nil {
		return s, err
	}
	f, exists := s.Facilities[commodityID]
	if !exists {
		return s, ErrNoFacility
	}
	refund := SellValue(c, f.Level)
	next := s.Clone()
	next.Cash += refund
	next.Lifetime.FacilityRefunds += refund
	delete(next.Facilities, commodityID)
	return next, nil
}

func (e *Engine) toggle(s State, commodityID string) (State, error) {
	if _, err := e.commodity(commodityID); err != nil {
		return s, err
	}
	f, exists := s.Facilities[commodityID]
	if !exists {
		return s, ErrNoFacility
	}
	next := s.Clone()
	f.Producing = !f.Producing
	next.Facilities[commodityID] = f
	return next, nil
}

// MaxAffordable is the largest whole quantity of commodityID that cash covers.
func MaxAffordable(s State, commodityID string) int {
	price := s.Prices[commodityID].Current
	if price <= 0 || s.Cash <= 0 {
		return 0
	}
	return int(math.Floor(s.Cash / price))
}
