// Package journal keeps an append-only audit trail of a session: one row per
// tick and one per player action. Nothing is ever read back to restore a game.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type TickRecord struct {
	SessionID  string             `json:"session_id"`
	Day        int                `json:"day"`
	Cash       float64            `json:"cash"`
	Debt       float64            `json:"debt"`
	NetEquity  float64            `json:"net_equity"`
	TaxBilled  float64            `json:"tax_billed"`
	Event      string             `json:"event,omitempty"`
	Bankrupt   bool               `json:"bankrupt"`
	Prices     map[string]float64 `json:"prices"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// ActionRecord ID is unique per row. IdempotencyKey is whatever the caller
// sent and may repeat when a rejected action is retried.
type ActionRecord struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	SessionID      string    `json:"session_id"`
	Day            int       `json:"day"`
	Kind           string    `json:"kind"`
	Commodity      string    `json:"commodity,omitempty"`
	Quantity       int       `json:"quantity,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	Accepted       bool      `json:"accepted"`
	Reason         string    `json:"reason,omitempty"`
	Cash           float64   `json:"cash"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type Recorder interface {
	RecordTick(ctx context.Context, rec TickRecord) error
	RecordAction(ctx context.Context, rec ActionRecord) error
	// RecentTicks returns up to limit ticks of a session, newest first.
	RecentTicks(ctx context.Context, sessionID string, limit int) ([]TickRecord, error)
	Close() error
}

// Open picks a backend from the DSN scheme: postgres:// or postgresql:// for
// Postgres, sqlite://<path> for SQLite, and the empty string for no journal.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return Nop{}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		rec, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("journal enabled", "backend", "postgres")
		return rec, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		rec, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		logger.Info("journal enabled", "backend", "sqlite", "path", path)
		return rec, nil
	default:
		return nil, fmt.Errorf("unsupported journal dsn %q", dsn)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTick(context.Context, TickRecord) error     { return nil }
func (Nop) RecordAction(context.Context, ActionRecord) error { return nil }
func (Nop) RecentTicks(context.Context, string, int) ([]TickRecord, error) {
	return nil, nil
}
func (Nop) Close() error { return nil }

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
