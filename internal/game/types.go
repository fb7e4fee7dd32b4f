package game

import (
	"maps"

	"commodex/internal/catalog"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

type MarketPrice struct {
	Current float64   `json:"current"`
	History []float64 `json:"history"`
	Trend   Trend     `json:"trend"`
}

type Facility struct {
	Commodity string  `json:"commodity"`
	Level     int     `json:"level"`
	Producing bool    `json:"producing"`
	Progress  float64 `json:"progress"`
}

type Event struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Category      catalog.Category `json:"category"`
	Multiplier    float64          `json:"multiplier"`
	Duration      int              `json:"duration"`
	RemainingDays int              `json:"remaining_days"`
}

// Ledger is the running 10-day cycle account.
type Ledger struct {
	Sales          float64 `json:"sales"`
	Purchases      float64 `json:"purchases"`
	ProductionCost float64 `json:"production_cost"`
}

type LifetimeStats struct {
	Sales           float64 `json:"sales"`
	Purchases       float64 `json:"purchases"`
	ProductionCost  float64 `json:"production_cost"`
	Construction    float64 `json:"construction"`
	Upgrades        float64 `json:"upgrades"`
	Interest        float64 `json:"interest"`
	Taxes           float64 `json:"taxes"`
	FacilityRefunds float64 `json:"facility_refunds"`
}

// State is one immutable snapshot of a game session. Transitions never modify
// a State they were given; they return a fresh copy.
type State struct {
	SessionID     string                 `json:"session_id"`
	Cash          float64                `json:"cash"`
	Debt          float64                `json:"debt"`
	Day           int                    `json:"day"`
	CycleProgress int                    `json:"cycle_progress"`
	Inventory     map[string]int         `json:"inventory"`
	Facilities    map[string]Facility    `json:"facilities"`
	Prices        map[string]MarketPrice `json:"prices"`
	Ledger        Ledger                 `json:"ledger"`
	LastLedger    Ledger                 `json:"last_ledger"`
	Lifetime      LifetimeStats          `json:"lifetime"`
	ActiveEvent   *Event                 `json:"active_event,omitempty"`
	TaxRate       float64                `json:"tax_rate"`
	NextTaxDay    int                    `json:"next_tax_day"`
	LastTaxBilled float64                `json:"last_tax_billed"`
	Bankrupt      bool                   `json:"bankrupt"`
}

func (s State) Clone() State {
	out := s
	out.Inventory = maps.Clone(s.Inventory)
	out.Facilities = maps.Clone(s.Facilities)
	out.Prices = make(map[string]MarketPrice, len(s.Prices))
	for id, p := range s.Prices {
		p.History = append([]float64(nil), p.History...)
		out.Prices[id] = p
	}
	if s.ActiveEvent != nil {
		ev := *s.ActiveEvent
		out.ActiveEvent = &ev
	}
	return out
}

// Dashboard is the read model handed to views: the snapshot plus every derived figure.
type Dashboard struct {
	State               State          `json:"state"`
	Paused              bool           `json:"paused"`
	InventoryValue      float64        `json:"inventory_value"`
	InfrastructureValue float64        `json:"infrastructure_value"`
	NetEquity           float64        `json:"net_equity"`
	LifetimeNet         float64        `json:"lifetime_net"`
	Market              []MarketView   `json:"market"`
	Facilities          []FacilityView `json:"facilities"`
}

type MarketView struct {
	Commodity     string  `json:"commodity"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Trend         Trend   `json:"trend"`
	Owned         int     `json:"owned"`
	EventActive   bool    `json:"event_active"`
}

type FacilityView struct {
	Facility
	Name        string  `json:"name"`
	DailyCost   float64 `json:"daily_cost"`
	UpgradeCost float64 `json:"upgrade_cost"`
	SellValue   float64 `json:"sell_value"`
}

// Notice is a transient message for the view layer. How long it stays on
// screen is up to the view.
type Notice struct {
	Kind    string  `json:"kind"`
	Day     int     `json:"day"`
	Amount  float64 `json:"amount,omitempty"`
	Message string  `json:"message"`
}

// Update is what the service fans out to subscribers after a transition.
// Seq increases by one per update within a process.
type Update struct {
	Seq     uint64 `json:"seq"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	UpdateState  = "state"
	UpdateNotice = "notice"
)
