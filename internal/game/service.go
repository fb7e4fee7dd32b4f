package game

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"commodex/internal/journal"

	"github.com/google/uuid"
)

const journalTimeout = 2 * time.Second

// Service owns the one live session. Ticks and actions are serialized under
// mu; journal writes and subscriber callbacks run after it is released.
type Service struct {
	engine  *Engine
	journal journal.Recorder
	log     *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	state  State
	paused bool
	seen   map[string]struct{}
	subs   []func(Update)
	seq    uint64

	// pubMu is taken before mu is released so subscribers see updates in
	// the order the state changed.
	pubMu sync.Mutex
}

func NewService(engine *Engine, rec journal.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = journal.Nop{}
	}
	return &Service{
		engine:  engine,
		journal: rec,
		log:     logger,
		now:     time.Now,
		state:   engine.NewState(),
		seen:    make(map[string]struct{}),
	}
}

func (s *Service) Engine() *Engine { return s.engine }

// Subscribe registers fn for every state and notice update. Updates arrive
// in Seq order. fn must not block or call back into the Service.
func (s *Service) Subscribe(fn func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Service) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Dashboard(s.state.Clone(), s.paused)
}

func (s *Service) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Service) SetPaused(paused bool) Dashboard {
	s.mu.Lock()
	changed := s.paused != paused
	s.paused = paused
	dash := s.engine.Dashboard(s.state.Clone(), s.paused)
	if !changed {
		s.mu.Unlock()
		return dash
	}
	batch := s.stamp(Update{Type: UpdateState, Payload: dash})
	s.handoff()

	s.log.Info("pause toggled", "paused", paused, "day", dash.State.Day)
	s.publish(batch)
	return dash
}

// Reset discards the session and opens a fresh one. The pause flag is kept.
func (s *Service) Reset(ctx context.Context) Dashboard {
	s.mu.Lock()
	old := s.state.SessionID
	s.state = s.engine.NewState()
	s.seen = make(map[string]struct{})
	dash := s.engine.Dashboard(s.state.Clone(), s.paused)
	batch := s.stamp(Update{Type: UpdateState, Payload: dash})
	s.handoff()

	s.publish(batch)
	s.log.Info("session reset", "previous_session", old, "session", dash.State.SessionID)
	s.recordTick(ctx, dash)
	return dash
}

// Tick advances the session by one day.
func (s *Service) Tick(ctx context.Context) (Dashboard, error) {
	return s.Do(ctx, "", Action{Kind: ActionAdvanceDay})
}

// Do applies a through the engine. A non-empty key is claimed on success and
// a repeat of it is rejected with ErrDuplicateIdempotency.
func (s *Service) Do(ctx context.Context, key string, a Action) (Dashboard, error) {
	key = strings.TrimSpace(key)

	s.mu.Lock()
	if s.paused {
		dash := s.engine.Dashboard(s.state.Clone(), true)
		s.mu.Unlock()
		return dash, ErrPaused
	}
	if key != "" {
		if _, dup := s.seen[key]; dup {
			dash := s.engine.Dashboard(s.state.Clone(), false)
			s.mu.Unlock()
			return dash, ErrDuplicateIdempotency
		}
	}
	prev := s.state
	next, err := s.engine.Apply(prev, a)
	if err == nil {
		s.state = next
		if key != "" {
			s.seen[key] = struct{}{}
		}
	}
	dash := s.engine.Dashboard(s.state.Clone(), false)
	if err != nil {
		s.mu.Unlock()
		if a.Kind != ActionAdvanceDay {
			s.recordAction(ctx, key, a, dash.State, err)
		}
		return dash, err
	}
	updates := []Update{{Type: UpdateState, Payload: dash}}
	for _, n := range Notices(prev, next) {
		updates = append(updates, Update{Type: UpdateNotice, Payload: n})
	}
	batch := s.stamp(updates...)
	s.handoff()
	s.publish(batch)

	if a.Kind == ActionAdvanceDay {
		s.recordTick(ctx, dash)
		s.log.Info("tick complete",
			"session", dash.State.SessionID,
			"day", dash.State.Day,
			"cash", dash.State.Cash,
			"net_equity", dash.NetEquity,
		)
	} else {
		s.recordAction(ctx, key, a, dash.State, nil)
	}
	for _, u := range batch.updates[1:] {
		n := u.Payload.(Notice)
		s.log.Info("notice", "kind", n.Kind, "day", n.Day, "message", n.Message)
	}
	return dash, nil
}

// History returns the journaled ticks of the live session, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]journal.TickRecord, error) {
	s.mu.Lock()
	session := s.state.SessionID
	s.mu.Unlock()
	return s.journal.RecentTicks(ctx, session, limit)
}

func (s *Service) recordTick(ctx context.Context, dash Dashboard) {
	st := dash.State
	rec := journal.TickRecord{
		SessionID:  st.SessionID,
		Day:        st.Day,
		Cash:       st.Cash,
		Debt:       st.Debt,
		NetEquity:  dash.NetEquity,
		Bankrupt:   st.Bankrupt,
		Prices:     make(map[string]float64, len(st.Prices)),
		RecordedAt: s.now().UTC(),
	}
	if st.NextTaxDay-TaxPeriodDays == st.Day && st.Day > 1 {
		rec.TaxBilled = st.LastTaxBilled
	}
	if st.ActiveEvent != nil {
		rec.Event = st.ActiveEvent.Name
	}
	for id, p := range st.Prices {
		rec.Prices[id] = p.Current
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.journal.RecordTick(jctx, rec); err != nil {
		s.log.Warn("journal tick failed", "day", st.Day, "err", err)
	}
}

func (s *Service) recordAction(ctx context.Context, key string, a Action, st State, applyErr error) {
	rec := journal.ActionRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		SessionID:      st.SessionID,
		Day:            st.Day,
		Kind:           string(a.Kind),
		Commodity:      a.Commodity,
		Quantity:       a.Quantity,
		Amount:         a.Amount,
		Accepted:       applyErr == nil,
		Cash:           st.Cash,
		RecordedAt:     s.now().UTC(),
	}
	if applyErr != nil {
		rec.Reason = applyErr.Error()
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.journal.RecordAction(jctx, rec); err != nil {
		s.log.Warn("journal action failed", "kind", a.Kind, "err", err)
	}
}

type pending struct {
	subs    []func(Update)
	updates []Update
}

// stamp numbers updates in state order. Callers hold mu.
func (s *Service) stamp(updates ...Update) pending {
	for i := range updates {
		s.seq++
		updates[i].Seq = s.seq
	}
	return pending{subs: s.subs, updates: updates}
}

// handoff trades mu for pubMu so the next transition cannot publish first.
func (s *Service) handoff() {
	s.pubMu.Lock()
	s.mu.Unlock()
}

// publish delivers a stamped batch and releases pubMu.
func (s *Service) publish(p pending) {
	defer s.pubMu.Unlock()
	for _, u := range p.updates {
		for _, fn := range p.subs {
			fn(u)
		}
	}
}

// IsRejection reports whether err is a player-facing rule rejection rather
// than an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrUnknownCommodity, ErrUnknownAction, ErrInvalidAmount, ErrInsufficientFunds,
		ErrInsufficientInventory, ErrFacilityExists, ErrNoFacility, ErrLoanOutstanding,
		ErrInvalidLoanAmount, ErrNoDebt, ErrGameOver, ErrPaused, ErrDuplicateIdempotency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
