package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commodex/internal/api"
	"commodex/internal/catalog"
	"commodex/internal/config"
	"commodex/internal/game"
	"commodex/internal/journal"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cat, err := catalog.LoadOrDefault(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog load failed", "path", cfg.CatalogPath, "err", err)
		os.Exit(1)
	}
	rules := game.DefaultRules()
	rules.InitialCash = cfg.InitialCash
	rules.BankruptcyThreshold = cfg.BankruptcyThreshold
	engine, err := game.NewEngine(cat, rules, game.NewRand(cfg.Seed))
	if err != nil {
		logger.Error("engine init failed", "err", err)
		os.Exit(1)
	}

	rec, err := journal.Open(ctx, cfg.JournalDSN, logger)
	if err != nil {
		logger.Error("journal open failed", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	gameSvc := game.NewService(engine, rec, logger)
	gameSvc.SetPaused(cfg.StartPaused)

	hub := api.NewHub(logger)
	gameSvc.Subscribe(hub.Publish)
	go hub.Run(ctx)
	go game.RunScheduler(ctx, gameSvc, cfg.TickEvery)

	server := api.New(cfg, logger, gameSvc, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("commodex api listening",
		"addr", cfg.Addr,
		"tick_every", cfg.TickEvery.String(),
		"commodities", len(cat.Commodities),
		"paused", cfg.StartPaused,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
