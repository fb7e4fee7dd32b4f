package game

import (
	"errors"
	"math/rand"
	"time"
)

const (
	DefaultInitialCash         = 5_000.0
	DefaultBankruptcyThreshold = -1_000.0

	HistoryLimit    = 20
	PriceFloorRatio = 0.1
	GravityRate     = 0.1

	CycleLength = 10 // days per accounting cycle

	TaxPeriodDays  = 30
	FirstTaxDay    = 1 + TaxPeriodDays
	InitialTaxRate = 0.15
	MinTaxRate     = 0.10
	MaxTaxRate     = 0.35

	DailyInterestRate = 0.015

	EventTriggerDraw = 0.3
	MinEventDays     = 3
	MaxEventDays     = 7

	UnlockCostMultiplier = 25.0
	UpgradeCostGrowth    = 1.8
	RunningCostGrowth    = 1.4
	SellRefundRatio      = 0.7
	ProgressPerCycle     = 100.0

	debtDustThreshold = 0.005
)

var DefaultLoanMenu = []float64{1_000, 5_000, 10_000, 25_000}

var (
	ErrUnknownCommodity      = errors.New("unknown commodity")
	ErrUnknownAction         = errors.New("unknown action")
	ErrInvalidAmount         = errors.New("amount must be > 0")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrFacilityExists        = errors.New("facility already built")
	ErrNoFacility            = errors.New("no facility for commodity")
	ErrLoanOutstanding       = errors.New("an outstanding loan must be repaid first")
	ErrInvalidLoanAmount     = errors.New("loan amount is not on the menu")
	ErrNoDebt                = errors.New("no outstanding debt")
	ErrGameOver              = errors.New("game over: bankrupt")
	ErrPaused                = errors.New("game is paused")
	ErrDuplicateIdempotency  = errors.New("duplicate idempotency key")
)

// Rules are the per-session knobs that are not part of the catalog.
type Rules struct {
	InitialCash         float64   `json:"initial_cash"`
	BankruptcyThreshold float64   `json:"bankruptcy_threshold"`
	LoanMenu            []float64 `json:"loan_menu"`
}

func DefaultRules() Rules {
	return Rules{
		InitialCash:         DefaultInitialCash,
		BankruptcyThreshold: DefaultBankruptcyThreshold,
		LoanMenu:            append([]float64(nil), DefaultLoanMenu...),
	}
}

func (r Rules) withDefaults() Rules {
	if r.InitialCash <= 0 {
		r.InitialCash = DefaultInitialCash
	}
	if len(r.LoanMenu) == 0 {
		r.LoanMenu = append([]float64(nil), DefaultLoanMenu...)
	}
	return r
}

func (r Rules) loanAllowed(amount float64) bool {
	for _, v := range r.LoanMenu {
		if v == amount {
			return true
		}
	}
	return false
}

// Rand is the random source the engine draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source; seed 0 picks one from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
