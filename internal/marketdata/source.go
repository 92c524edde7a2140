// Package marketdata pulls prices and candle series from the market data
// provider. The provider is rate-limited, so the latest price is cached for a
// short window and rate-limit failures are tolerated by serving the cache.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trading-enginev1/internal/model"
)

const (
	defaultTimeout = 7 * time.Second
	maxRetries     = 2
	retryBackoff   = 500 * time.Millisecond
)

// ErrNoPrice is returned when neither a live fetch nor the cache can supply
// a price.
var ErrNoPrice = errors.New("marketdata: no price available")

// Source is the pull interface over the market data provider.
type Source interface {
	// LatestPrice returns the most recent traded price for a symbol.
	LatestPrice(ctx context.Context, symbol string) (float64, error)

	// Candles returns up to size OHLC candles for (symbol, interval),
	// ascending by timestamp.
	Candles(ctx context.Context, symbol, interval string, size int) ([]model.Candle, error)
}

// HTTPSource fetches prices and candles from the provider's REST API.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSource creates a provider client.
func NewHTTPSource(baseURL, apiKey string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type priceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type candleResponse struct {
	Values []struct {
		Datetime string  `json:"datetime"`
		Open     float64 `json:"open,string"`
		High     float64 `json:"high,string"`
		Low      float64 `json:"low,string"`
		Close    float64 `json:"close,string"`
		Volume   float64 `json:"volume,string"`
	} `json:"values"`
}

func (s *HTTPSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{"symbol": {symbol}, "apikey": {s.apiKey}}
	var resp priceResponse
	if err := s.get(ctx, "/price?"+q.Encode(), &resp); err != nil {
		return 0, err
	}
	if resp.Price <= 0 {
		return 0, fmt.Errorf("marketdata: bad price %v for %s", resp.Price, symbol)
	}
	return resp.Price, nil
}

func (s *HTTPSource) Candles(ctx context.Context, symbol, interval string, size int) ([]model.Candle, error) {
	q := url.Values{
		"symbol":     {symbol},
		"interval":   {interval},
		"outputsize": {strconv.Itoa(size)},
		"apikey":     {s.apiKey},
	}
	var resp candleResponse
	if err := s.get(ctx, "/time_series?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(resp.Values))
	for _, v := range resp.Values {
		ts, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("marketdata: parse candle time %q: %w", v.Datetime, err)
		}
		candles = append(candles, model.Candle{
			Symbol: symbol, Timeframe: interval, TS: ts.UTC(),
			Open: v.Open, High: v.High, Low: v.Low, Close: v.Close, Volume: v.Volume,
		})
	}
	// Provider returns newest-first; flip to ascending for indicator input.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// get issues one logical GET with the fixed retry policy.
func (s *HTTPSource) get(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			log.Printf("[marketdata] retry %d/%d after: %v", attempt, maxRetries, lastErr)
		}
		if err := s.getOnce(ctx, path, out); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("marketdata: fetch failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (s *HTTPSource) getOnce(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("marketdata: rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketdata: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
