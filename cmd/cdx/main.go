package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	cl "commodex/internal/cli"
	"commodex/internal/config"
	"commodex/internal/game"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type remote struct {
	apiBase string
	token   string
}

func (r *remote) client() *cl.Client {
	return cl.NewClient(strings.TrimSpace(r.apiBase), r.token)
}

func main() {
	_ = godotenv.Load()
	cfg := config.LoadCLIFromEnv()
	rem := &remote{apiBase: cfg.APIBaseURL, token: cfg.APIToken}
	if profile, err := cl.LoadProfile(); err == nil {
		if strings.TrimSpace(os.Getenv("CDX_API_BASE_URL")) == "" && profile.APIBaseURL != "" {
			rem.apiBase = profile.APIBaseURL
		}
		if rem.token == "" {
			rem.token = profile.APIToken
		}
	}

	root := &cobra.Command{
		Use:          "cdx",
		Short:        "Commodex commodity trading client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&rem.apiBase, "api", rem.apiBase, "API base URL")
	root.PersistentFlags().StringVar(&rem.token, "token", rem.token, "API bearer token")

	root.AddCommand(
		newConnectCmd(),
		newDisconnectCmd(),
		newStateCmd(rem),
		newMarketCmd(rem),
		newCatalogCmd(rem),
		newJournalCmd(rem),
		newBuyCmd(rem),
		newSellCmd(rem),
		newFacilityCmd(rem, "build", "unlock", "Build a production facility"),
		newFacilityCmd(rem, "upgrade", "upgrade", "Upgrade a facility by one level"),
		newFacilityCmd(rem, "demolish", "sell", "Sell a facility for a partial refund"),
		newFacilityCmd(rem, "toggle", "toggle", "Start or stop a facility"),
		newLoanCmd(rem),
		newRepayCmd(rem),
		newControlCmd(rem, "pause", "Pause the clock", (*cl.Client).Pause),
		newControlCmd(rem, "resume", "Resume the clock", (*cl.Client).Resume),
		newControlCmd(rem, "reset", "Discard the session and start over", (*cl.Client).Reset),
		newTickCmd(rem),
		newPlayCmd(),
		newSimulateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func printSummary(d game.Dashboard) {
	s := d.State
	fmt.Printf("Day %d  cash %s  debt %s  net equity %s\n", s.Day, colorizeMoney(s.Cash), money(s.Debt), colorizeMoney(d.NetEquity))
	if s.Bankrupt {
		printError("Bankrupt. Run `cdx reset` to start a new session.")
	}
}

func newConnectCmd() *cobra.Command {
	var p cl.Profile
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Remember which server to talk to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(p.APIBaseURL) == "" {
				return fmt.Errorf("--url is required")
			}
			if err := cl.SaveProfile(p); err != nil {
				return err
			}
			printSuccess("Profile saved.")
			return nil
		},
	}
	cmd.Flags().StringVar(&p.APIBaseURL, "url", "", "API base URL")
	cmd.Flags().StringVar(&p.APIToken, "token", "", "API bearer token")
	return cmd
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the saved server profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearProfile(); err != nil {
				return err
			}
			printSuccess("Profile cleared.")
			return nil
		},
	}
}

func newStateCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:     "state",
		Short:   "Show the full dashboard",
		Aliases: []string{"dash"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			d, err := rem.client().State(ctx)
			if err != nil {
				return err
			}
			renderDashboard(d)
			return nil
		},
	}
}

func newMarketCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			d, err := rem.client().State(ctx)
			if err != nil {
				return err
			}
			fmt.Println()
			renderMarket(d.Market)
			if ev := d.State.ActiveEvent; ev != nil {
				warn.Printf("%s: %s\n", ev.Name, ev.Description)
			}
			fmt.Println()
			return nil
		},
	}
}

func newCatalogCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show commodities, build costs and the loan menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			c, err := rem.client().Catalog(ctx)
			if err != nil {
				return err
			}
			renderCatalog(c)
			return nil
		},
	}
}

func newJournalCmd(rem *remote) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recently journaled days",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			ticks, err := rem.client().Journal(ctx, limit)
			if err != nil {
				return err
			}
			renderJournal(ticks)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of days to show")
	return cmd
}

func newBuyCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <commodity> <quantity|max>",
		Short: "Buy units at the current price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := rem.client()
			id := strings.ToLower(strings.TrimSpace(args[0]))

			var qty int
			if strings.EqualFold(args[1], "max") {
				d, err := client.State(ctx)
				if err != nil {
					return err
				}
				qty = game.MaxAffordable(d.State, id)
				if qty == 0 {
					printWarn("Cash does not cover a single unit.")
					return nil
				}
			} else {
				n, err := parseQuantity(args[1])
				if err != nil {
					return err
				}
				qty = n
			}
			d, err := client.Trade(ctx, id, qty, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %d %s.", qty, id))
			printSummary(d)
			return nil
		},
	}
}

func newSellCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <commodity> <quantity|all>",
		Short: "Sell units from inventory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := rem.client()
			id := strings.ToLower(strings.TrimSpace(args[0]))

			var qty int
			if strings.EqualFold(args[1], "all") {
				d, err := client.State(ctx)
				if err != nil {
					return err
				}
				qty = d.State.Inventory[id]
				if qty == 0 {
					printWarn("Nothing to sell.")
					return nil
				}
			} else {
				n, err := parseQuantity(args[1])
				if err != nil {
					return err
				}
				qty = n
			}
			d, err := client.Trade(ctx, id, -qty, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sold %d %s.", qty, id))
			printSummary(d)
			return nil
		},
	}
}

func newFacilityCmd(rem *remote, use, op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <commodity>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			id := strings.ToLower(strings.TrimSpace(args[0]))
			d, err := rem.client().Facility(ctx, id, op, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s %s: done.", use, id))
			printSummary(d)
			return nil
		},
	}
}

func newLoanCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:   "loan <amount>",
		Short: "Take a loan from the menu (see `cdx catalog`)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			d, err := rem.client().TakeLoan(ctx, amount, uuid.NewString())
			if err != nil {
				return err
			}
			printWarn(fmt.Sprintf("Borrowed %s at %.1f%% per day.", money(amount), game.DailyInterestRate*100))
			printSummary(d)
			return nil
		},
	}
}

func newRepayCmd(rem *remote) *cobra.Command {
	return &cobra.Command{
		Use:   "repay <amount|all>",
		Short: "Repay outstanding debt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := rem.client()

			var amount float64
			if strings.EqualFold(args[0], "all") {
				d, err := client.State(ctx)
				if err != nil {
					return err
				}
				amount = math.Min(d.State.Cash, d.State.Debt)
				if amount <= 0 {
					printWarn("Nothing to repay with.")
					return nil
				}
			} else {
				v, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				amount = v
			}
			d, err := client.Repay(ctx, amount, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Repaid %s.", money(amount)))
			printSummary(d)
			return nil
		},
	}
}

func newControlCmd(rem *remote, use, short string, call func(*cl.Client, context.Context) (game.Dashboard, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			d, err := call(rem.client(), ctx)
			if err != nil {
				return err
			}
			printSummary(d)
			return nil
		},
	}
}

func newTickCmd(rem *remote) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the clock manually",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("--n must be at least 1")
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			client := rem.client()
			var d game.Dashboard
			for i := 0; i < n; i++ {
				out, err := client.Tick(ctx)
				if err != nil {
					return err
				}
				d = out
			}
			printSummary(d)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 1, "number of days to advance")
	return cmd
}

func parseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("quantity must be a positive whole number")
	}
	return n, nil
}

func parseAmount(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("amount must be a positive number")
	}
	return v, nil
}
