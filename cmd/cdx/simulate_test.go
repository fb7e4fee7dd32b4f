package main

import (
	"context"
	"log/slog"
	"reflect"
	"testing"

	"commodex/internal/catalog"
	"commodex/internal/game"
)

func newSimService(t *testing.T, seed int64) *game.Service {
	t.Helper()
	engine, err := game.NewEngine(catalog.Default(), game.DefaultRules(), game.NewRand(seed))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return game.NewService(engine, nil, slog.New(slog.DiscardHandler))
}

func TestRunSimulationIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a, err := runSimulation(ctx, newSimService(t, 7), 60, 10, 0)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := runSimulation(ctx, newSimService(t, 7), 60, 10, 0)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	fa, fb := a.Final.State, b.Final.State
	if fa.Cash != fb.Cash || fa.Debt != fb.Debt || fa.Day != fb.Day || a.Final.NetEquity != b.Final.NetEquity {
		t.Fatalf("runs diverged: %+v vs %+v", fa, fb)
	}
	if !reflect.DeepEqual(fa.Inventory, fb.Inventory) || !reflect.DeepEqual(fa.Facilities, fb.Facilities) {
		t.Fatalf("holdings diverged: %v/%v vs %v/%v", fa.Inventory, fa.Facilities, fb.Inventory, fb.Facilities)
	}
	if a.Accepted != b.Accepted || a.Rejected != b.Rejected {
		t.Fatalf("action counts diverged: %d/%d vs %d/%d", a.Accepted, a.Rejected, b.Accepted, b.Rejected)
	}
	if !fa.Bankrupt {
		if fa.Day != 61 {
			t.Fatalf("final day=%d want 61", fa.Day)
		}
		if len(a.Checkpoints) != 6 {
			t.Fatalf("checkpoints=%d want 6", len(a.Checkpoints))
		}
	}
	if a.Accepted == 0 {
		t.Fatalf("strategy never acted")
	}
}

func TestPlanDayOpeningMove(t *testing.T) {
	cat := catalog.Default()
	s := game.NewState(cat, game.DefaultInitialCash)

	plan := planDay(s, cat, game.DefaultLoanMenu)
	want := []game.Action{{Kind: game.ActionUnlock, Commodity: "wheat"}}
	if !reflect.DeepEqual(plan, want) {
		t.Fatalf("plan=%+v want %+v", plan, want)
	}
}

func TestPlanDayBorrowsWhenOverdrawn(t *testing.T) {
	cat := catalog.Default()
	s := game.NewState(cat, game.DefaultInitialCash)
	s.Cash = -200
	s.Facilities["wheat"] = game.Facility{Commodity: "wheat", Level: 1, Producing: false}

	plan := planDay(s, cat, game.DefaultLoanMenu)
	if len(plan) == 0 || plan[0] != (game.Action{Kind: game.ActionLoan, Amount: 1000}) {
		t.Fatalf("plan=%+v want a 1000 loan first", plan)
	}
	for _, a := range plan[1:] {
		if a.Kind == game.ActionTrade && a.Quantity > 0 {
			t.Fatalf("bought while overdrawn: %+v", a)
		}
	}
}

func TestPlanDaySellsSpikes(t *testing.T) {
	cat := catalog.Default()
	s := game.NewState(cat, game.DefaultInitialCash)
	s.Facilities["wheat"] = game.Facility{Commodity: "wheat", Level: 1, Producing: true}
	s.Inventory["oil"] = 12
	p := s.Prices["oil"]
	p.Current = 100 // base 80
	s.Prices["oil"] = p

	plan := planDay(s, cat, game.DefaultLoanMenu)
	found := false
	for _, a := range plan {
		if a.Kind == game.ActionTrade && a.Commodity == "oil" {
			if a.Quantity != -12 {
				t.Fatalf("oil trade=%+v want sell 12", a)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("plan=%+v missing oil sale", plan)
	}
}

func TestParseAmountAndQuantity(t *testing.T) {
	if v, err := parseAmount("5,000"); err != nil || v != 5000 {
		t.Fatalf("parseAmount=%v,%v", v, err)
	}
	for _, raw := range []string{"0", "-3", "abc", "NaN"} {
		if _, err := parseAmount(raw); err == nil {
			t.Fatalf("parseAmount(%q) accepted", raw)
		}
	}
	if n, err := parseQuantity(" 7 "); err != nil || n != 7 {
		t.Fatalf("parseQuantity=%v,%v", n, err)
	}
	if _, err := parseQuantity("1.5"); err == nil {
		t.Fatalf("fractional quantity accepted")
	}
}
