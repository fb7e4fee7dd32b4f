package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commodex/internal/catalog"
	"commodex/internal/config"
	"commodex/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	hub  *Hub
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		hub:  hub,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/ws", s.handleWs)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/state", s.handleState)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/journal", s.handleJournal)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/trade", s.handleTrade)
			r.Post("/facilities/{commodity}/{op}", s.handleFacility)
			r.Post("/loans", s.handleLoan)
			r.Post("/loans/repay", s.handleRepay)
			r.Post("/pause", s.handlePause(true))
			r.Post("/resume", s.handlePause(false))
			r.Post("/reset", s.handleReset)
			r.Post("/tick", s.handleTick)
		})
	})
}

// authMiddleware guards mutating routes when an API token is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.APIToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

type catalogEntry struct {
	catalog.Commodity
	UnlockCost float64 `json:"unlock_cost"`
	DailyCost  float64 `json:"daily_cost"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	eng := s.game.Engine()
	cat := eng.Catalog()
	entries := make([]catalogEntry, 0, len(cat.Commodities))
	for _, c := range cat.Commodities {
		entries = append(entries, catalogEntry{
			Commodity:  c,
			UnlockCost: game.UnlockCost(c),
			DailyCost:  game.DailyRunningCost(c, 1),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"commodities": entries,
		"events":      cat.Events,
		"loan_menu":   eng.Rules().LoanMenu,
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	ticks, err := s.game.History(r.Context(), limit)
	if err != nil {
		s.log.Error("journal read failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticks": ticks})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Commodity string `json:"commodity"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, game.Action{
		Kind:      game.ActionTrade,
		Commodity: strings.TrimSpace(in.Commodity),
		Quantity:  in.Quantity,
	})
}

var facilityOps = map[string]game.ActionKind{
	"unlock":  game.ActionUnlock,
	"upgrade": game.ActionUpgrade,
	"sell":    game.ActionSellFacility,
	"toggle":  game.ActionToggle,
}

func (s *Server) handleFacility(w http.ResponseWriter, r *http.Request) {
	kind, ok := facilityOps[chi.URLParam(r, "op")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown facility operation")
		return
	}
	s.apply(w, r, game.Action{Kind: kind, Commodity: chi.URLParam(r, "commodity")})
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, game.Action{Kind: game.ActionLoan, Amount: in.Amount})
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.apply(w, r, game.Action{Kind: game.ActionRepay, Amount: in.Amount})
}

func (s *Server) handlePause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.game.SetPaused(paused))
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Reset(r.Context()))
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	dash, err := s.game.Tick(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWs(w, r, game.Update{Type: game.UpdateState, Payload: s.game.Dashboard()})
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, a game.Action) {
	dash, err := s.game.Do(r.Context(), idempotencyKey(r), a)
	if err != nil {
		s.log.Info("action rejected", "kind", a.Kind, "commodity", a.Commodity, "err", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency),
		errors.Is(err, game.ErrFacilityExists),
		errors.Is(err, game.ErrLoanOutstanding):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientInventory),
		errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrInvalidLoanAmount),
		errors.Is(err, game.ErrNoDebt),
		errors.Is(err, game.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrUnknownCommodity), errors.Is(err, game.ErrNoFacility):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrPaused), errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusLocked, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
