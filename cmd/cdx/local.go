package main

import (
	"context"
	"fmt"
	"log/slog"

	"commodex/internal/catalog"
	"commodex/internal/config"
	"commodex/internal/game"
	"commodex/internal/journal"

	"github.com/spf13/cobra"
)

// localOptions configure an in-process session for play and simulate.
type localOptions struct {
	seed        int64
	catalogPath string
	journalDSN  string
	initialCash float64
	bankruptAt  float64
}

// bindLocalFlags registers the shared flags, defaulting to the COMMODEX_*
// environment the API server reads.
func bindLocalFlags(cmd *cobra.Command, opts *localOptions) {
	defaults := localDefaults()
	cmd.Flags().Int64Var(&opts.seed, "seed", defaults.seed, "random seed (0 picks one from the clock)")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", defaults.catalogPath, "YAML catalog file (empty uses the built-in one)")
	cmd.Flags().StringVar(&opts.journalDSN, "journal", defaults.journalDSN, "journal DSN, e.g. sqlite://cdx.db")
	cmd.Flags().Float64Var(&opts.initialCash, "cash", defaults.initialCash, "starting cash")
	cmd.Flags().Float64Var(&opts.bankruptAt, "bankrupt-below", defaults.bankruptAt, "cash level below which the session is bankrupt")
}

func localDefaults() localOptions {
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		return localOptions{initialCash: game.DefaultInitialCash, bankruptAt: game.DefaultBankruptcyThreshold}
	}
	return localOptions{
		seed:        cfg.Seed,
		catalogPath: cfg.CatalogPath,
		journalDSN:  cfg.JournalDSN,
		initialCash: cfg.InitialCash,
		bankruptAt:  cfg.BankruptcyThreshold,
	}
}

func openLocal(ctx context.Context, opts localOptions, logger *slog.Logger) (*game.Service, journal.Recorder, error) {
	cat, err := catalog.LoadOrDefault(opts.catalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	rules := game.DefaultRules()
	rules.InitialCash = opts.initialCash
	rules.BankruptcyThreshold = opts.bankruptAt
	engine, err := game.NewEngine(cat, rules, game.NewRand(opts.seed))
	if err != nil {
		return nil, nil, err
	}
	rec, err := journal.Open(ctx, opts.journalDSN, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	return game.NewService(engine, rec, logger), rec, nil
}
