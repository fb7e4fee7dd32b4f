package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"commodex/internal/catalog"
	"commodex/internal/game"
	"commodex/internal/journal"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   strings.TrimSpace(token),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type CatalogEntry struct {
	catalog.Commodity
	UnlockCost float64 `json:"unlock_cost"`
	DailyCost  float64 `json:"daily_cost"`
}

type Catalog struct {
	Commodities []CatalogEntry          `json:"commodities"`
	Events      []catalog.EventTemplate `json:"events"`
	LoanMenu    []float64               `json:"loan_menu"`
}

func (c *Client) State(ctx context.Context) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", nil, &out, "")
	return out, err
}

func (c *Client) Catalog(ctx context.Context) (Catalog, error) {
	var out Catalog
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/catalog", nil, &out, "")
	return out, err
}

func (c *Client) Journal(ctx context.Context, limit int) ([]journal.TickRecord, error) {
	var out struct {
		Ticks []journal.TickRecord `json:"ticks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/journal?limit=%d", limit), nil, &out, "")
	return out.Ticks, err
}

// Trade buys when quantity is positive and sells when it is negative.
func (c *Client) Trade(ctx context.Context, commodity string, quantity int, idem string) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trade", map[string]any{
		"commodity": commodity,
		"quantity":  quantity,
	}, &out, idem)
	return out, err
}

// Facility runs one of unlock, upgrade, sell or toggle.
func (c *Client) Facility(ctx context.Context, commodity, op, idem string) (game.Dashboard, error) {
	var out game.Dashboard
	path := fmt.Sprintf("/v1/facilities/%s/%s", url.PathEscape(commodity), url.PathEscape(op))
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out, idem)
	return out, err
}

func (c *Client) TakeLoan(ctx context.Context, amount float64, idem string) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/loans", map[string]any{"amount": amount}, &out, idem)
	return out, err
}

func (c *Client) Repay(ctx context.Context, amount float64, idem string) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/loans/repay", map[string]any{"amount": amount}, &out, idem)
	return out, err
}

func (c *Client) Pause(ctx context.Context) (game.Dashboard, error) {
	return c.post(ctx, "/v1/pause")
}

func (c *Client) Resume(ctx context.Context) (game.Dashboard, error) {
	return c.post(ctx, "/v1/resume")
}

func (c *Client) Reset(ctx context.Context) (game.Dashboard, error) {
	return c.post(ctx, "/v1/reset")
}

func (c *Client) Tick(ctx context.Context) (game.Dashboard, error) {
	return c.post(ctx, "/v1/tick")
}

func (c *Client) post(ctx context.Context, path string) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodPost, path, nil, &out, "")
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
