package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"PairWatch/internal/model"
)

// FuturesSource talks to an index-futures gateway that exposes historical
// bars over REST and a JSON websocket emitting 5-second partial bars and
// trade ticks. The gateway handles exchange connectivity, contract rolls and
// authentication; this client only consumes its normalized stream.
type FuturesSource struct {
	Symbol     string // e.g. ES
	GatewayURL string // http(s) base
	StreamURL  string // ws(s) stream endpoint
	Client     *http.Client
}

// NewFuturesSource creates a gateway client with optional proxy support.
func NewFuturesSource(symbol, gatewayURL, streamURL, proxyURL string) *FuturesSource {
	return &FuturesSource{
		Symbol:     symbol,
		GatewayURL: gatewayURL,
		StreamURL:  streamURL,
		Client:     newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (s *FuturesSource) Name() string { return "futures-gateway" }

// gatewayBar is the gateway's wire representation of one bar.
type gatewayBar struct {
	Time   int64   `json:"time"` // unix seconds, bar open
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (g gatewayBar) toBar() model.OHLCV {
	return model.OHLCV{
		Time:   time.Unix(g.Time, 0).UTC(),
		Open:   g.Open,
		High:   g.High,
		Low:    g.Low,
		Close:  g.Close,
		Volume: g.Volume,
	}
}

// streamMessage is one websocket frame from the gateway.
type streamMessage struct {
	Type  string     `json:"type"` // "bar" (5s partial) or "tick"
	Bar   gatewayBar `json:"bar"`
	Price float64    `json:"price"`
}

// Backfill fetches the most recent `limit` historical bars of the given size.
func (s *FuturesSource) Backfill(ctx context.Context, barSize time.Duration, limit int) ([]model.OHLCV, error) {
	interval, err := intervalString(barSize)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/historical?symbol=%s&barSize=%s&limit=%d", s.GatewayURL, s.Symbol, interval, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch historical: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(body))
	}

	var rows []gatewayBar
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode historical: %w", err)
	}
	bars := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, r.toBar())
	}
	return bars, nil
}

// ContractLabel asks the gateway for the active front-month contract symbol.
// Falls back to the base symbol on error.
func (s *FuturesSource) ContractLabel(ctx context.Context) string {
	url := fmt.Sprintf("%s/contract?symbol=%s", s.GatewayURL, s.Symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return s.Symbol
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		log.Printf("[WARN] fetch contract label: %v", err)
		return s.Symbol
	}
	defer resp.Body.Close()
	var payload struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Symbol == "" {
		return s.Symbol
	}
	return payload.Symbol
}

// Stream reads the gateway websocket until the context is cancelled,
// reconnecting with capped backoff. 5-second bars go to OnPartial; the
// consumer aggregates them into minute bars.
func (s *FuturesSource) Stream(ctx context.Context, h Handler) error {
	url := fmt.Sprintf("%s?symbol=%s", s.StreamURL, s.Symbol)
	backoff := time.Duration(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			backoff = nextBackoff(backoff)
			log.Printf("[WARN] gateway dial failed: %v, retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[WARN] gateway stream read: %v, reconnecting", err)
				break
			}
			var msg streamMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "bar":
				if h.OnPartial != nil {
					h.OnPartial(msg.Bar.toBar())
				}
			case "tick":
				if h.OnTick != nil {
					h.OnTick(msg.Price)
				}
			}
		}
	}
}
