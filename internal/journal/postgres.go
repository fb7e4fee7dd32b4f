package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"commodex/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE SCHEMA IF NOT EXISTS journal`,
	`CREATE TABLE IF NOT EXISTS journal.ticks (
		id          BIGSERIAL PRIMARY KEY,
		session_id  UUID NOT NULL,
		day         INTEGER NOT NULL,
		cash        DOUBLE PRECISION NOT NULL,
		debt        DOUBLE PRECISION NOT NULL,
		net_equity  DOUBLE PRECISION NOT NULL,
		tax_billed  DOUBLE PRECISION NOT NULL DEFAULT 0,
		event       TEXT NOT NULL DEFAULT '',
		bankrupt    BOOLEAN NOT NULL DEFAULT false,
		prices      JSONB NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ticks_session_day_idx ON journal.ticks (session_id, day DESC)`,
	`CREATE TABLE IF NOT EXISTS journal.actions (
		id          UUID PRIMARY KEY,
		session_id  UUID NOT NULL,
		day         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		commodity   TEXT NOT NULL DEFAULT '',
		quantity    INTEGER NOT NULL DEFAULT 0,
		amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
		accepted    BOOLEAN NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		cash        DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE journal.actions ADD COLUMN IF NOT EXISTS idempotency_key TEXT NOT NULL DEFAULT ''`,
}

type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := db.Connect(ctx, databaseURL, 4)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool, postgresSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) RecordTick(ctx context.Context, rec TickRecord) error {
	prices, err := json.Marshal(rec.Prices)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO journal.ticks (session_id, day, cash, debt, net_equity, tax_billed, event, bankrupt, prices, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
	`, rec.SessionID, rec.Day, rec.Cash, rec.Debt, rec.NetEquity, rec.TaxBilled, rec.Event, rec.Bankrupt, string(prices), rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

func (p *Postgres) RecordAction(ctx context.Context, rec ActionRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO journal.actions (id, idempotency_key, session_id, day, kind, commodity, quantity, amount, accepted, reason, cash, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.IdempotencyKey, rec.SessionID, rec.Day, rec.Kind, rec.Commodity, rec.Quantity, rec.Amount, rec.Accepted, rec.Reason, rec.Cash, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (p *Postgres) RecentTicks(ctx context.Context, sessionID string, limit int) ([]TickRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT session_id::text, day, cash, debt, net_equity, tax_billed, event, bankrupt, prices, recorded_at
		FROM journal.ticks
		WHERE session_id = $1
		ORDER BY day DESC
		LIMIT $2
	`, sessionID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRecord
	for rows.Next() {
		var (
			rec    TickRecord
			prices []byte
		)
		if err := rows.Scan(&rec.SessionID, &rec.Day, &rec.Cash, &rec.Debt, &rec.NetEquity, &rec.TaxBilled, &rec.Event, &rec.Bankrupt, &prices, &rec.RecordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(prices, &rec.Prices); err != nil {
			return nil, fmt.Errorf("decode prices: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
