package main

import (
	"fmt"
	"os"
	"strings"

	cl "commodex/internal/cli"
	"commodex/internal/game"
	"commodex/internal/journal"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func renderDashboard(d game.Dashboard) {
	s := d.State
	status := success.Sprint("RUNNING")
	switch {
	case s.Bankrupt:
		status = danger.Sprint("BANKRUPT")
	case d.Paused:
		status = warn.Sprint("PAUSED")
	}

	accent.Printf("\n== DAY %d (cycle %d/%d) %s ==\n", s.Day, s.CycleProgress, game.CycleLength, status)
	fmt.Printf("Cash:            %s\n", colorizeMoney(s.Cash))
	fmt.Printf("Debt:            %s\n", money(s.Debt))
	fmt.Printf("Inventory value: %s\n", money(d.InventoryValue))
	fmt.Printf("Infrastructure:  %s\n", money(d.InfrastructureValue))
	fmt.Printf("Net equity:      %s\n", colorizeMoney(d.NetEquity))
	fmt.Printf("Lifetime P/L:    %s\n", colorizeMoney(d.LifetimeNet))
	fmt.Printf("Tax:             %.1f%% due day %d (last bill %s)\n", s.TaxRate*100, s.NextTaxDay, money(s.LastTaxBilled))
	if ev := s.ActiveEvent; ev != nil {
		warn.Printf("Event:           %s (%s x%.2f, %d/%d days left)\n", ev.Name, ev.Category, ev.Multiplier, ev.RemainingDays, ev.Duration)
	}

	fmt.Println()
	renderMarket(d.Market)
	fmt.Println()
	renderFacilities(d.Facilities)

	fmt.Println()
	accent.Println("Ledger")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Period", "Sales", "Purchases", "Production", "Net"}),
	)
	_ = table.Append(ledgerRow("This cycle", s.Ledger))
	_ = table.Append(ledgerRow("Last cycle", s.LastLedger))
	_ = table.Render()
	fmt.Println()
}

func ledgerRow(label string, l game.Ledger) []string {
	return []string{
		label,
		money(l.Sales),
		money(l.Purchases),
		money(l.ProductionCost),
		colorizeMoney(l.Sales - l.Purchases - l.ProductionCost),
	}
}

func renderMarket(market []game.MarketView) {
	accent.Println("Market")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Commodity", "Category", "Price", "Change", "Owned", "Event"}),
	)
	for _, m := range market {
		event := ""
		if m.EventActive {
			event = warn.Sprint("*")
		}
		_ = table.Append([]string{
			m.Commodity,
			truncate(m.Name, 18),
			m.Category,
			money(m.Price),
			colorizePercent(m.ChangePercent),
			humanize.Comma(int64(m.Owned)),
			event,
		})
	}
	_ = table.Render()
}

func renderFacilities(facilities []game.FacilityView) {
	accent.Println("Facilities")
	if len(facilities) == 0 {
		printInfo("No facilities yet. Try `cdx build <commodity>`.")
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Name", "Level", "Status", "Progress", "Daily cost", "Upgrade", "Sell value"}),
	)
	for _, f := range facilities {
		status := success.Sprint("producing")
		if !f.Producing {
			status = warn.Sprint("idle")
		}
		_ = table.Append([]string{
			f.Commodity,
			truncate(f.Name, 18),
			fmt.Sprintf("%d", f.Level),
			status,
			fmt.Sprintf("%.0f%%", f.Progress),
			money(f.DailyCost),
			money(f.UpgradeCost),
			money(f.SellValue),
		})
	}
	_ = table.Render()
}

func renderCatalog(c cl.Catalog) {
	accent.Println("\n== CATALOG ==")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Name", "Category", "Base price", "Volatility", "Build cost", "Daily cost", "Yield"}),
	)
	for _, e := range c.Commodities {
		_ = table.Append([]string{
			e.ID,
			e.Name,
			string(e.Category),
			money(e.BasePrice),
			fmt.Sprintf("%.0f%%", e.Volatility*100),
			money(e.UnlockCost),
			money(e.DailyCost),
			fmt.Sprintf("%d", e.ProductionYield),
		})
	}
	_ = table.Render()

	menu := make([]string, 0, len(c.LoanMenu))
	for _, v := range c.LoanMenu {
		menu = append(menu, money(v))
	}
	fmt.Printf("Loan menu: %s\n\n", strings.Join(menu, ", "))
}

func renderJournal(ticks []journal.TickRecord) {
	accent.Println("\n== JOURNAL ==")
	if len(ticks) == 0 {
		printInfo("Nothing journaled for this session. Is COMMODEX_JOURNAL set on the server?")
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Day", "Cash", "Debt", "Net equity", "Tax", "Event", "Recorded"}),
	)
	for _, t := range ticks {
		tax := ""
		if t.TaxBilled > 0 {
			tax = money(t.TaxBilled)
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", t.Day),
			colorizeMoney(t.Cash),
			money(t.Debt),
			colorizeMoney(t.NetEquity),
			tax,
			t.Event,
			humanize.Time(t.RecordedAt),
		})
	}
	_ = table.Render()
}

func money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", v)
}

func colorizeMoney(v float64) string {
	text := money(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
