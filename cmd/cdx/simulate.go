package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"commodex/internal/catalog"
	"commodex/internal/game"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	buyBelow     = 0.85 // of base price
	sellAbove    = 1.15
	cashReserve  = 1_000.0
	spendShare   = 0.25
	upgradeRatio = 4.0 // cash must cover this many upgrade costs
)

type simReport struct {
	Checkpoints []game.Dashboard
	Final       game.Dashboard
	Accepted    int
	Rejected    int
}

func newSimulateCmd() *cobra.Command {
	var (
		opts        localOptions
		days        int
		reportEvery int
		every       time.Duration
		verbose     bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded session headless with a scripted strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			svc, rec, err := openLocal(cmd.Context(), opts, logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			report, err := runSimulation(cmd.Context(), svc, days, reportEvery, every)
			if err != nil {
				return err
			}
			renderSimReport(report)
			return nil
		},
	}
	bindLocalFlags(cmd, &opts)
	cmd.Flags().IntVar(&days, "days", 90, "number of days to simulate")
	cmd.Flags().IntVar(&reportEvery, "report", 10, "print a checkpoint every N days")
	cmd.Flags().DurationVar(&every, "every", 0, "wall-clock pause between days")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every tick")
	return cmd
}

// runSimulation plays the scripted strategy for days ticks or until the
// session goes bankrupt.
func runSimulation(ctx context.Context, svc *game.Service, days, reportEvery int, every time.Duration) (simReport, error) {
	var report simReport
	cat := svc.Engine().Catalog()
	menu := svc.Engine().Rules().LoanMenu

	for i := 0; i < days; i++ {
		for _, a := range planDay(svc.Snapshot(), cat, menu) {
			_, err := svc.Do(ctx, "", a)
			switch {
			case err == nil:
				report.Accepted++
			case game.IsRejection(err):
				report.Rejected++
			default:
				return report, err
			}
		}

		d, err := svc.Tick(ctx)
		if err != nil {
			if errors.Is(err, game.ErrGameOver) {
				break
			}
			return report, err
		}
		if reportEvery > 0 && (i+1)%reportEvery == 0 {
			report.Checkpoints = append(report.Checkpoints, d)
		}
		if d.State.Bankrupt {
			break
		}
		if every > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(every):
			}
		}
	}
	report.Final = svc.Dashboard()
	return report, nil
}

// planDay is the scripted strategy: keep one facility running, buy dips,
// sell spikes and borrow only to cover a negative balance.
func planDay(s game.State, cat *catalog.Catalog, menu []float64) []game.Action {
	var plan []game.Action
	cash := s.Cash

	if s.Debt == 0 && cash < 0 && len(menu) > 0 {
		plan = append(plan, game.Action{Kind: game.ActionLoan, Amount: menu[0]})
		cash += menu[0]
	}
	if s.Debt > 0 && cash-cashReserve >= s.Debt {
		plan = append(plan, game.Action{Kind: game.ActionRepay, Amount: s.Debt})
		cash -= s.Debt
	}

	if len(s.Facilities) == 0 {
		if c, ok := cheapestFacility(cat, cash-cashReserve); ok {
			plan = append(plan, game.Action{Kind: game.ActionUnlock, Commodity: c.ID})
			cash -= game.UnlockCost(c)
		}
	}

	for _, c := range cat.Commodities {
		price := s.Prices[c.ID].Current
		if f, built := s.Facilities[c.ID]; built {
			if !f.Producing && cash > cashReserve {
				plan = append(plan, game.Action{Kind: game.ActionToggle, Commodity: c.ID})
			}
			if up := game.UpgradeCost(c, f.Level); cash > up*upgradeRatio {
				plan = append(plan, game.Action{Kind: game.ActionUpgrade, Commodity: c.ID})
				cash -= up
			}
		}
		switch {
		case price >= c.BasePrice*sellAbove && s.Inventory[c.ID] > 0:
			qty := s.Inventory[c.ID]
			plan = append(plan, game.Action{Kind: game.ActionTrade, Commodity: c.ID, Quantity: -qty})
			cash += price * float64(qty)
		case price <= c.BasePrice*buyBelow && cash > cashReserve:
			qty := int(math.Floor((cash - cashReserve) * spendShare / price))
			if qty > 0 {
				plan = append(plan, game.Action{Kind: game.ActionTrade, Commodity: c.ID, Quantity: qty})
				cash -= price * float64(qty)
			}
		}
	}
	return plan
}

func cheapestFacility(cat *catalog.Catalog, budget float64) (catalog.Commodity, bool) {
	var (
		best  catalog.Commodity
		found bool
	)
	for _, c := range cat.Commodities {
		cost := game.UnlockCost(c)
		if cost > budget {
			continue
		}
		if !found || cost < game.UnlockCost(best) {
			best, found = c, true
		}
	}
	return best, found
}

func renderSimReport(r simReport) {
	if len(r.Checkpoints) > 0 {
		accent.Println("\n== CHECKPOINTS ==")
		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"Day", "Cash", "Debt", "Net equity", "Facilities", "Event"}),
		)
		for _, d := range r.Checkpoints {
			event := ""
			if d.State.ActiveEvent != nil {
				event = d.State.ActiveEvent.Name
			}
			_ = table.Append([]string{
				fmt.Sprintf("%d", d.State.Day),
				colorizeMoney(d.State.Cash),
				money(d.State.Debt),
				colorizeMoney(d.NetEquity),
				fmt.Sprintf("%d", len(d.Facilities)),
				event,
			})
		}
		_ = table.Render()
	}

	s := r.Final.State
	accent.Println("\n== LIFETIME ==")
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader([]string{"Account", "Total"}))
	for _, row := range []struct {
		label string
		total float64
	}{
		{"Sales", s.Lifetime.Sales},
		{"Purchases", s.Lifetime.Purchases},
		{"Production", s.Lifetime.ProductionCost},
		{"Construction", s.Lifetime.Construction},
		{"Upgrades", s.Lifetime.Upgrades},
		{"Facility refunds", s.Lifetime.FacilityRefunds},
		{"Interest", s.Lifetime.Interest},
		{"Taxes", s.Lifetime.Taxes},
	} {
		_ = table.Append([]string{row.label, money(row.total)})
	}
	_ = table.Append([]string{"Net", colorizeMoney(r.Final.LifetimeNet)})
	_ = table.Render()

	fmt.Printf("\nActions accepted %d, rejected %d\n", r.Accepted, r.Rejected)
	printSummary(r.Final)
}
