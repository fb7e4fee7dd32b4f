package config

import (
	"testing"
	"time"
)

func TestLoadAPIFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "COMMODEX_API_ADDR", "COMMODEX_TICK_EVERY", "COMMODEX_INITIAL_CASH",
		"COMMODEX_BANKRUPTCY_THRESHOLD", "COMMODEX_SEED", "COMMODEX_JOURNAL", "COMMODEX_START_PAUSED"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.TickEvery != 3*time.Second || cfg.InitialCash != 5000 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.BankruptcyThreshold != -1000 || cfg.Seed != 0 || cfg.StartPaused {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadAPIFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("COMMODEX_TICK_EVERY", "250ms")
	t.Setenv("COMMODEX_SEED", "42")
	t.Setenv("COMMODEX_START_PAUSED", "true")
	t.Setenv("COMMODEX_INITIAL_CASH", "not-a-number")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.TickEvery != 250*time.Millisecond || cfg.Seed != 42 || !cfg.StartPaused {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.InitialCash != 5000 {
		t.Fatalf("bad numbers fall back to the default, got %v", cfg.InitialCash)
	}
}

func TestLoadAPIFromEnvRejectsNonPositiveTick(t *testing.T) {
	t.Setenv("COMMODEX_TICK_EVERY", "-1s")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected error for negative tick period")
	}
}

func TestLoadCLIFromEnvTrimsSlash(t *testing.T) {
	t.Setenv("CDX_API_BASE_URL", "http://example.test:8080/")
	if got := LoadCLIFromEnv().APIBaseURL; got != "http://example.test:8080" {
		t.Fatalf("base url=%q", got)
	}
}
