// Package brokerbridge is the HTTP client for the external broker
// integration service. It exposes the four logical trade operations plus a
// server-time probe over an authenticated channel, with a fixed retry policy:
// two retries with a fixed backoff, after which the call fails rather than
// retrying indefinitely. A stale trading decision is worse than a skipped
// cycle.
package brokerbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	defaultTimeout = 7 * time.Second
	maxRetries     = 2
	retryBackoff   = 500 * time.Millisecond
)

// ErrBridgeStatus is returned (wrapped) for any non-2xx response.
var ErrBridgeStatus = errors.New("bridge: unexpected status")

// Config configures the bridge client.
type Config struct {
	BaseURL    string
	APIKey     string
	AccountRef string
	TOTPSecret string        // optional; adds a one-time code per request
	Timeout    time.Duration // default 7s
}

// Client talks to the broker integration service.
type Client struct {
	cfg    Config
	client *http.Client
}

// New creates a bridge client. BaseURL must be non-empty.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("bridge: base URL required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// OrderRequest is the payload for placing an order.
type OrderRequest struct {
	AccountRef string  `json:"account_ref"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"` // BUY or SELL
	LotSize    float64 `json:"lot_size"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
}

// OrderResponse is the broker's acknowledgement of an executed order.
type OrderResponse struct {
	TicketID  string  `json:"ticket_id"`
	OpenPrice float64 `json:"open_price"`
}

// CloseRequest asks the broker to close (part of) a position.
type CloseRequest struct {
	AccountRef string  `json:"account_ref"`
	TicketID   string  `json:"ticket_id"`
	Lots       float64 `json:"lots,omitempty"` // 0 = full close
}

// CloseResponse reports the close price and realized profit.
type CloseResponse struct {
	TicketID   string  `json:"ticket_id"`
	ClosePrice float64 `json:"close_price"`
	Profit     float64 `json:"profit"`
}

// AccountSummary mirrors the broker's account snapshot.
type AccountSummary struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Currency   string  `json:"currency"`
}

// Position is one open position at the broker.
type Position struct {
	TicketID   string    `json:"ticket_id"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	LotSize    float64   `json:"lot_size"`
	OpenPrice  float64   `json:"open_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenTime   time.Time `json:"open_time"`
}

// ServerTime is the broker's clock.
type ServerTime struct {
	Time time.Time `json:"time"`
}

// PlaceOrder executes a market order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if req.AccountRef == "" {
		req.AccountRef = c.cfg.AccountRef
	}
	var resp OrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseOrder closes an open position by ticket.
func (c *Client) CloseOrder(ctx context.Context, req CloseRequest) (*CloseResponse, error) {
	if req.AccountRef == "" {
		req.AccountRef = c.cfg.AccountRef
	}
	var resp CloseResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders/close", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccountSummary fetches balance/equity/margin for an account.
func (c *Client) GetAccountSummary(ctx context.Context, accountRef string) (*AccountSummary, error) {
	if accountRef == "" {
		accountRef = c.cfg.AccountRef
	}
	var resp AccountSummary
	path := "/api/v1/account/summary?account_ref=" + accountRef
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOpenPositions lists the account's open positions.
func (c *Client) GetOpenPositions(ctx context.Context, accountRef string) ([]Position, error) {
	if accountRef == "" {
		accountRef = c.cfg.AccountRef
	}
	var resp []Position
	path := "/api/v1/positions?account_ref=" + accountRef
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetServerTime fetches the broker's clock.
func (c *Client) GetServerTime(ctx context.Context) (*ServerTime, error) {
	var resp ServerTime
	if err := c.do(ctx, http.MethodGet, "/api/v1/time", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do issues one logical request with the fixed retry policy. Any non-2xx
// response or malformed payload is a terminal error for that attempt.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			log.Printf("[bridge] retry %d/%d %s %s after: %v", attempt, maxRetries, method, path, lastErr)
		}
		if err := c.doOnce(ctx, method, path, body, out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("bridge: %s %s failed after %d attempts: %w", method, path, maxRetries+1, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("bridge: marshal: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("bridge: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	if c.cfg.TOTPSecret != "" {
		code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
		if err != nil {
			return fmt.Errorf("bridge: totp: %w", err)
		}
		req.Header.Set("X-TOTP-Code", code)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: send: %w", err)
	}
	defer resp.Body.Close()

	// 202/204 mean accepted-async: nothing to decode.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w %d for %s %s", ErrBridgeStatus, resp.StatusCode, method, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bridge: decode %s: %w", path, err)
	}
	return nil
}
