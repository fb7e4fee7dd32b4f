package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	rec, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for day := 1; day <= 3; day++ {
		err := rec.RecordTick(ctx, TickRecord{
			SessionID:  "s-1",
			Day:        day,
			Cash:       5000 - float64(day)*10,
			NetEquity:  5000,
			Event:      "Drought",
			Bankrupt:   day == 3,
			Prices:     map[string]float64{"oil": 80 + float64(day), "gold": 180},
			RecordedAt: at.Add(time.Duration(day) * time.Second),
		})
		if err != nil {
			t.Fatalf("record tick %d: %v", day, err)
		}
	}
	if err := rec.RecordTick(ctx, TickRecord{SessionID: "other", Day: 9, Prices: map[string]float64{}, RecordedAt: at}); err != nil {
		t.Fatalf("record other: %v", err)
	}

	got, err := rec.RecentTicks(ctx, "s-1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d ticks want 2", len(got))
	}
	if got[0].Day != 3 || got[1].Day != 2 {
		t.Fatalf("order=%d,%d want 3,2", got[0].Day, got[1].Day)
	}
	if got[0].Prices["oil"] != 83 || got[0].Cash != 4970 || !got[0].Bankrupt || got[0].Event != "Drought" {
		t.Fatalf("tick=%+v", got[0])
	}
	if got[1].Bankrupt {
		t.Fatalf("day 2 should not be bankrupt")
	}
}

func TestSQLiteActionsIgnoreDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	rec, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	a := ActionRecord{
		ID:         "8a3c6f0e-3b7e-4a39-9d7a-1f4a0b5c2d11",
		SessionID:  "s-1",
		Day:        4,
		Kind:       "trade",
		Commodity:  "oil",
		Quantity:   10,
		Accepted:   true,
		Cash:       4200,
		RecordedAt: time.Now(),
	}
	for i := 0; i < 2; i++ {
		if err := rec.RecordAction(ctx, a); err != nil {
			t.Fatalf("record action: %v", err)
		}
	}
	n, err := rec.ActionCount(ctx, "s-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("actions=%d want 1", n)
	}
}

func TestOpenDispatch(t *testing.T) {
	ctx := context.Background()

	rec, err := Open(ctx, "  ", nil)
	if err != nil {
		t.Fatalf("empty dsn: %v", err)
	}
	if _, ok := rec.(Nop); !ok {
		t.Fatalf("empty dsn should disable the journal, got %T", rec)
	}

	rec, err = Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "j.db"), nil)
	if err != nil {
		t.Fatalf("sqlite dsn: %v", err)
	}
	defer rec.Close()
	if _, ok := rec.(*SQLite); !ok {
		t.Fatalf("got %T want *SQLite", rec)
	}

	if _, err := Open(ctx, "mysql://localhost/db", nil); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}
