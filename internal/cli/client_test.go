package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"commodex/internal/game"
)

func TestClientSendsHeadersAndDecodes(t *testing.T) {
	var gotAuth, gotIdem, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(game.Dashboard{State: game.State{Cash: 4200, Day: 3}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")
	dash, err := c.Trade(context.Background(), "oil", 10, "key-1")
	if err != nil {
		t.Fatalf("trade: %v", err)
	}
	if dash.State.Cash != 4200 || dash.State.Day != 3 {
		t.Fatalf("dashboard=%+v", dash.State)
	}
	if gotAuth != "Bearer tok" || gotIdem != "key-1" || gotPath != "/v1/trade" {
		t.Fatalf("auth=%q idem=%q path=%q", gotAuth, gotIdem, gotPath)
	}
	if gotBody["commodity"] != "oil" || gotBody["quantity"].(float64) != 10 {
		t.Fatalf("body=%v", gotBody)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"facility already built"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Facility(context.Background(), "oil", "unlock", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "facility already built" {
		t.Fatalf("api error=%+v", apiErr)
	}
	if apiErr.Error() != "api status 409: facility already built" {
		t.Fatalf("message=%q", apiErr.Error())
	}
}

func TestProfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	orig := profileDir
	profileDir = func() (string, error) { return dir, nil }
	defer func() { profileDir = orig }()

	if p, err := LoadProfile(); err != nil || p != (Profile{}) {
		t.Fatalf("missing profile: %+v %v", p, err)
	}
	if err := SaveProfile(Profile{APIBaseURL: "http://box:8080/", APIToken: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, err := LoadProfile()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.APIBaseURL != "http://box:8080" || p.APIToken != "t" {
		t.Fatalf("profile=%+v", p)
	}
	if err := ClearProfile(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if p, _ := LoadProfile(); p != (Profile{}) {
		t.Fatalf("profile after clear=%+v", p)
	}
}
