package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"commodex/internal/catalog"
	"commodex/internal/config"
	"commodex/internal/game"

	"github.com/gorilla/websocket"
)

type testEnv struct {
	srv *httptest.Server
	svc *game.Service
	hub *Hub
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	eng, err := game.NewEngine(catalog.Default(), game.DefaultRules(), game.NewRand(1))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	svc := game.NewService(eng, nil, nil)
	hub := NewHub(nil)
	svc.Subscribe(hub.Publish)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(New(config.APIConfig{APIToken: token}, nil, svc, hub).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return &testEnv{srv: srv, svc: svc, hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func cashOf(t *testing.T, body map[string]any) float64 {
	t.Helper()
	state, ok := body["state"].(map[string]any)
	if !ok {
		t.Fatalf("no state in %v", body)
	}
	return state["cash"].(float64)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, "")
	status, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK || body["ok"] != true {
		t.Fatalf("status=%d body=%v", status, body)
	}
}

func TestTradeEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodPost, "/v1/trade", `{"commodity":"oil","quantity":10}`, nil)
	if status != http.StatusOK {
		t.Fatalf("buy status=%d body=%v", status, body)
	}
	if cash := cashOf(t, body); cash != 4200 {
		t.Fatalf("cash=%v want 4200", cash)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"beyond cash", `{"commodity":"oil","quantity":1000}`, http.StatusBadRequest},
		{"oversell", `{"commodity":"oil","quantity":-11}`, http.StatusBadRequest},
		{"unknown commodity", `{"commodity":"tulips","quantity":1}`, http.StatusNotFound},
		{"unknown field", `{"commodity":"oil","qty":1}`, http.StatusBadRequest},
		{"malformed", `{"commodity":`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		status, body := env.do(t, http.MethodPost, "/v1/trade", tc.body, nil)
		if status != tc.want {
			t.Fatalf("%s: status=%d want %d body=%v", tc.name, status, tc.want, body)
		}
		if _, ok := body["error"]; !ok {
			t.Fatalf("%s: missing error field: %v", tc.name, body)
		}
	}
	if got := env.svc.Snapshot().Cash; got != 4200 {
		t.Fatalf("rejections changed cash to %v", got)
	}
}

func TestFacilityEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodPost, "/v1/facilities/oil/unlock", "", nil)
	if status != http.StatusOK || cashOf(t, body) != 3000 {
		t.Fatalf("unlock status=%d body=%v", status, body)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/facilities/oil/unlock", "", nil); status != http.StatusConflict {
		t.Fatalf("second unlock status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/facilities/oil/toggle", "", nil); status != http.StatusOK {
		t.Fatalf("toggle status=%d", status)
	}
	if env.svc.Snapshot().Facilities["oil"].Producing {
		t.Fatalf("toggle did not stop production")
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/facilities/gold/sell", "", nil); status != http.StatusNotFound {
		t.Fatalf("sell missing status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/facilities/oil/explode", "", nil); status != http.StatusNotFound {
		t.Fatalf("unknown op status=%d", status)
	}
	status, body = env.do(t, http.MethodPost, "/v1/facilities/oil/sell", "", nil)
	if status != http.StatusOK || cashOf(t, body) != 4400 {
		t.Fatalf("sell status=%d body=%v", status, body)
	}
}

func TestLoanEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	if status, _ := env.do(t, http.MethodPost, "/v1/loans", `{"amount":2000}`, nil); status != http.StatusBadRequest {
		t.Fatalf("off-menu loan status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/loans", `{"amount":5000}`, nil); status != http.StatusOK {
		t.Fatalf("loan status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/loans", `{"amount":1000}`, nil); status != http.StatusConflict {
		t.Fatalf("second loan status=%d", status)
	}
	status, body := env.do(t, http.MethodPost, "/v1/loans/repay", `{"amount":5000}`, nil)
	if status != http.StatusOK {
		t.Fatalf("repay status=%d body=%v", status, body)
	}
	if debt := body["state"].(map[string]any)["debt"].(float64); debt != 0 {
		t.Fatalf("debt=%v", debt)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/loans/repay", `{"amount":10}`, nil); status != http.StatusBadRequest {
		t.Fatalf("repay without debt status=%d", status)
	}
}

func TestPauseBlocksActions(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodPost, "/v1/pause", "", nil)
	if status != http.StatusOK || body["paused"] != true {
		t.Fatalf("pause status=%d body=%v", status, body)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/trade", `{"commodity":"oil","quantity":1}`, nil); status != http.StatusLocked {
		t.Fatalf("trade while paused status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/tick", "", nil); status != http.StatusLocked {
		t.Fatalf("tick while paused status=%d", status)
	}
	env.do(t, http.MethodPost, "/v1/resume", "", nil)
	status, body = env.do(t, http.MethodPost, "/v1/tick", "", nil)
	if status != http.StatusOK {
		t.Fatalf("tick status=%d", status)
	}
	if day := body["state"].(map[string]any)["day"].(float64); day != 2 {
		t.Fatalf("day=%v want 2", day)
	}
}

func TestIdempotencyKeyHeader(t *testing.T) {
	env := newTestEnv(t, "")
	h := map[string]string{"Idempotency-Key": "0d9f3c2e-5a61-4b8e-9f0a-4e2b7c1d8a33"}

	if status, _ := env.do(t, http.MethodPost, "/v1/trade", `{"commodity":"wheat","quantity":4}`, h); status != http.StatusOK {
		t.Fatalf("first status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/trade", `{"commodity":"wheat","quantity":4}`, h); status != http.StatusConflict {
		t.Fatalf("replay status=%d", status)
	}
	if got := env.svc.Snapshot().Inventory["wheat"]; got != 4 {
		t.Fatalf("wheat=%d want 4", got)
	}
}

func TestTokenGuardsMutations(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	if status, _ := env.do(t, http.MethodGet, "/v1/state", "", nil); status != http.StatusOK {
		t.Fatalf("reads stay open, status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/tick", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/tick", "", map[string]string{"Authorization": "Bearer nope"}); status != http.StatusUnauthorized {
		t.Fatalf("wrong token status=%d", status)
	}
	if status, _ := env.do(t, http.MethodPost, "/v1/tick", "", map[string]string{"Authorization": "Bearer s3cret"}); status != http.StatusOK {
		t.Fatalf("valid token status=%d", status)
	}
}

func TestCatalogAndJournalEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, http.MethodGet, "/v1/catalog", "", nil)
	if status != http.StatusOK {
		t.Fatalf("catalog status=%d", status)
	}
	items := body["commodities"].([]any)
	if len(items) != 8 {
		t.Fatalf("commodities=%d", len(items))
	}
	first := items[0].(map[string]any)
	if first["id"] != "oil" || first["unlock_cost"].(float64) != 2000 {
		t.Fatalf("first entry=%v", first)
	}
	if menu := body["loan_menu"].([]any); len(menu) != 4 {
		t.Fatalf("loan menu=%v", menu)
	}

	if status, _ := env.do(t, http.MethodGet, "/v1/journal?limit=abc", "", nil); status != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d", status)
	}
	if status, _ := env.do(t, http.MethodGet, "/v1/journal", "", nil); status != http.StatusOK {
		t.Fatalf("journal status=%d", status)
	}
}

func TestWebsocketStreamsUpdates(t *testing.T) {
	env := newTestEnv(t, "")
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() game.Update {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var u game.Update
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("read: %v", err)
		}
		return u
	}

	if u := read(); u.Type != game.UpdateState {
		t.Fatalf("greeting type=%q", u.Type)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if status, _ := env.do(t, http.MethodPost, "/v1/tick", "", nil); status != http.StatusOK {
		t.Fatalf("tick status=%d", status)
	}
	u := read()
	if u.Type != game.UpdateState {
		t.Fatalf("update type=%q", u.Type)
	}
	day := u.Payload.(map[string]any)["state"].(map[string]any)["day"].(float64)
	if day != 2 {
		t.Fatalf("day=%v want 2", day)
	}
}
