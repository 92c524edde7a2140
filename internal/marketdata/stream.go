package marketdata

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Stream subscribes to the provider's price websocket and keeps the price
// cache warm between pull cycles. It reconnects with a fixed delay and stops
// when the context is cancelled; the pull path stays authoritative, so a
// broken stream only means slightly staler cache entries.
type Stream struct {
	wsURL   string
	apiKey  string
	symbols []string
	cache   PriceCache
}

// NewStream creates a price stream feeding the given cache.
func NewStream(wsURL, apiKey string, symbols []string, cache PriceCache) *Stream {
	return &Stream{wsURL: wsURL, apiKey: apiKey, symbols: symbols, cache: cache}
}

type streamEvent struct {
	Event  string  `json:"event"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Run connects and consumes price events until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) {
	const reconnectDelay = 5 * time.Second

	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[marketdata] stream disconnected: %v, reconnecting in %s", err, reconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL+"?apikey="+s.apiKey, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"action": "subscribe",
		"params": map[string]interface{}{"symbols": s.symbols},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Printf("[marketdata] stream subscribed to %v", s.symbols)

	// Unblock ReadMessage on shutdown.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev streamEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Printf("[marketdata] stream: malformed event: %v", err)
			continue
		}
		if ev.Event != "price" || ev.Price <= 0 {
			continue
		}
		s.cache.Set(ctx, ev.Symbol, ev.Price)
	}
}
