package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ticks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	day INTEGER NOT NULL,
	cash REAL NOT NULL,
	debt REAL NOT NULL,
	net_equity REAL NOT NULL,
	tax_billed REAL NOT NULL DEFAULT 0,
	event TEXT NOT NULL DEFAULT '',
	bankrupt INTEGER NOT NULL DEFAULT 0,
	prices_json TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	idempotency_key TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL,
	day INTEGER NOT NULL,
	kind TEXT NOT NULL,
	commodity TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	amount REAL NOT NULL DEFAULT 0,
	accepted INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	cash REAL NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ticks_session_day ON ticks(session_id, day);
CREATE INDEX IF NOT EXISTS idx_actions_session ON actions(session_id);
`

type SQLite struct {
	conn *sqlx.DB
}

type actionRow struct {
	ID             string    `db:"id"`
	IdempotencyKey string    `db:"idempotency_key"`
	SessionID      string    `db:"session_id"`
	Day            int       `db:"day"`
	Kind           string    `db:"kind"`
	Commodity      string    `db:"commodity"`
	Quantity       int       `db:"quantity"`
	Amount         float64   `db:"amount"`
	Accepted       bool      `db:"accepted"`
	Reason         string    `db:"reason"`
	Cash           float64   `db:"cash"`
	RecordedAt     time.Time `db:"recorded_at"`
}

type tickRow struct {
	SessionID  string    `db:"session_id"`
	Day        int       `db:"day"`
	Cash       float64   `db:"cash"`
	Debt       float64   `db:"debt"`
	NetEquity  float64   `db:"net_equity"`
	TaxBilled  float64   `db:"tax_billed"`
	Event      string    `db:"event"`
	Bankrupt   bool      `db:"bankrupt"`
	PricesJSON string    `db:"prices_json"`
	RecordedAt time.Time `db:"recorded_at"`
}

func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) RecordTick(ctx context.Context, rec TickRecord) error {
	prices, err := json.Marshal(rec.Prices)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `INSERT INTO ticks
		(session_id, day, cash, debt, net_equity, tax_billed, event, bankrupt, prices_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Day, rec.Cash, rec.Debt, rec.NetEquity, rec.TaxBilled,
		rec.Event, rec.Bankrupt, string(prices), rec.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

func (s *SQLite) RecordAction(ctx context.Context, rec ActionRecord) error {
	_, err := s.conn.ExecContext(ctx, `INSERT OR IGNORE INTO actions
		(id, idempotency_key, session_id, day, kind, commodity, quantity, amount, accepted, reason, cash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.IdempotencyKey, rec.SessionID, rec.Day, rec.Kind, rec.Commodity, rec.Quantity,
		rec.Amount, rec.Accepted, rec.Reason, rec.Cash, rec.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (s *SQLite) RecentTicks(ctx context.Context, sessionID string, limit int) ([]TickRecord, error) {
	var rows []tickRow
	err := s.conn.SelectContext(ctx, &rows, `SELECT session_id, day, cash, debt, net_equity, tax_billed,
		event, bankrupt, prices_json, recorded_at
		FROM ticks WHERE session_id = ? ORDER BY day DESC LIMIT ?`,
		sessionID, clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	out := make([]TickRecord, 0, len(rows))
	for _, r := range rows {
		rec := TickRecord{
			SessionID:  r.SessionID,
			Day:        r.Day,
			Cash:       r.Cash,
			Debt:       r.Debt,
			NetEquity:  r.NetEquity,
			TaxBilled:  r.TaxBilled,
			Event:      r.Event,
			Bankrupt:   r.Bankrupt,
			RecordedAt: r.RecordedAt,
		}
		if err := json.Unmarshal([]byte(r.PricesJSON), &rec.Prices); err != nil {
			return nil, fmt.Errorf("decode prices: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ActionCount reports how many actions were journaled for a session.
func (s *SQLite) ActionCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.conn.GetContext(ctx, &n, `SELECT COUNT(1) FROM actions WHERE session_id = ?`, sessionID)
	return n, err
}

// Actions returns the session's action rows in insertion order.
func (s *SQLite) Actions(ctx context.Context, sessionID string) ([]ActionRecord, error) {
	var rows []actionRow
	err := s.conn.SelectContext(ctx, &rows, `SELECT id, idempotency_key, session_id, day, kind, commodity,
		quantity, amount, accepted, reason, cash, recorded_at
		FROM actions WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select actions: %w", err)
	}
	out := make([]ActionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActionRecord(r))
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}
