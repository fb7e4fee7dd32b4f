package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr                string
	APIToken            string
	TickEvery           time.Duration
	InitialCash         float64
	BankruptcyThreshold float64
	Seed                int64
	CatalogPath         string
	JournalDSN          string
	StartPaused         bool
}

type CLIConfig struct {
	APIBaseURL string
	APIToken   string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("COMMODEX_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:                addr,
		APIToken:            strings.TrimSpace(os.Getenv("COMMODEX_API_TOKEN")),
		TickEvery:           envDurationDefault("COMMODEX_TICK_EVERY", 3*time.Second),
		InitialCash:         envFloatDefault("COMMODEX_INITIAL_CASH", 5000),
		BankruptcyThreshold: envFloatDefault("COMMODEX_BANKRUPTCY_THRESHOLD", -1000),
		Seed:                envInt64Default("COMMODEX_SEED", 0),
		CatalogPath:         strings.TrimSpace(os.Getenv("COMMODEX_CATALOG")),
		JournalDSN:          strings.TrimSpace(os.Getenv("COMMODEX_JOURNAL")),
		StartPaused:         envBoolDefault("COMMODEX_START_PAUSED", false),
	}
	if cfg.TickEvery <= 0 {
		return cfg, fmt.Errorf("COMMODEX_TICK_EVERY must be positive")
	}
	if cfg.InitialCash <= 0 {
		return cfg, fmt.Errorf("COMMODEX_INITIAL_CASH must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("CDX_API_BASE_URL", "http://localhost:8080"), "/"),
		APIToken:   strings.TrimSpace(os.Getenv("CDX_API_TOKEN")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
