package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"PairWatch/internal/model"
)

// BinanceSource streams crypto klines and trade ticks from the Binance spot
// websocket API and fetches historical klines over REST.
type BinanceSource struct {
	Pair     string // e.g. BTCUSDT
	WSBase   string // e.g. wss://stream.binance.com:9443
	RESTBase string // e.g. https://api.binance.com
	Client   *http.Client
}

// NewBinanceSource creates a Binance client with optional proxy support.
func NewBinanceSource(pair, wsBase, restBase, proxyURL string) *BinanceSource {
	return &BinanceSource{
		Pair:     strings.ToUpper(pair),
		WSBase:   wsBase,
		RESTBase: restBase,
		Client:   newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (s *BinanceSource) Name() string { return "binance" }

// binance per-request kline cap
const maxKlineLimit = 1000

// Backfill fetches the most recent `limit` klines of the given bar size,
// chunking with startTime when the request exceeds the exchange cap.
func (s *BinanceSource) Backfill(ctx context.Context, barSize time.Duration, limit int) ([]model.OHLCV, error) {
	interval, err := intervalString(barSize)
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if limit <= maxKlineLimit {
		raw, err = s.fetchKlines(ctx, interval, limit, 0)
		if err != nil {
			return nil, err
		}
	} else {
		stepMS := barSize.Milliseconds()
		nextStart := time.Now().UTC().UnixMilli() - stepMS*int64(limit)
		for len(raw) < limit {
			batch := limit - len(raw)
			if batch > maxKlineLimit {
				batch = maxKlineLimit
			}
			chunk, err := s.fetchKlines(ctx, interval, batch, nextStart)
			if err != nil {
				return nil, err
			}
			if len(chunk) == 0 {
				break
			}
			raw = append(raw, chunk...)
			last, ok := chunk[len(chunk)-1][0].(float64)
			if !ok {
				break
			}
			nextStart = int64(last) + stepMS
			if len(chunk) < batch {
				break
			}
		}
	}
	if len(raw) > limit {
		raw = raw[:limit]
	}

	bars := make([]model.OHLCV, 0, len(raw))
	for _, k := range raw {
		bar, ok := parseKlineRow(k)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (s *BinanceSource) fetchKlines(ctx context.Context, interval string, limit int, startMS int64) ([][]any, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", s.RESTBase, s.Pair, interval, limit)
	if startMS > 0 {
		url += fmt.Sprintf("&startTime=%d", startMS)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("klines API status %d: %s", resp.StatusCode, string(body))
	}
	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	return rows, nil
}

// parseKlineRow converts one Binance kline array
// [openTimeMs, open, high, low, close, volume, ...] into a bar.
func parseKlineRow(k []any) (model.OHLCV, bool) {
	if len(k) < 6 {
		return model.OHLCV{}, false
	}
	ms, ok := k[0].(float64)
	if !ok {
		return model.OHLCV{}, false
	}
	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		str, ok := k[i].(string)
		if !ok {
			return model.OHLCV{}, false
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return model.OHLCV{}, false
		}
		vals[i-1] = v
	}
	return model.OHLCV{
		Time:   time.UnixMilli(int64(ms)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}

// klineMessage mirrors the Binance kline stream payload.
type klineMessage struct {
	Kline struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

// tradeMessage mirrors the Binance trade stream payload.
type tradeMessage struct {
	Price string `json:"p"`
}

// Stream subscribes to the 1-minute kline stream and, when a tick handler is
// set, the trade stream. Both reconnect with capped backoff until the
// context is cancelled.
func (s *BinanceSource) Stream(ctx context.Context, h Handler) error {
	if h.OnTick != nil {
		go s.streamTrades(ctx, h.OnTick)
	}
	return s.streamKlines(ctx, h.OnBar)
}

func (s *BinanceSource) streamKlines(ctx context.Context, onBar func(model.OHLCV)) error {
	url := fmt.Sprintf("%s/ws/%s@kline_1m", s.WSBase, strings.ToLower(s.Pair))
	return s.readLoop(ctx, url, "kline", func(data []byte) {
		var msg klineMessage
		if err := json.Unmarshal(data, &msg); err != nil || !msg.Kline.Closed {
			return
		}
		bar, ok := parseKlineFields(msg)
		if !ok {
			return
		}
		if onBar != nil {
			onBar(bar)
		}
	})
}

func (s *BinanceSource) streamTrades(ctx context.Context, onTick func(float64)) {
	url := fmt.Sprintf("%s/ws/%s@trade", s.WSBase, strings.ToLower(s.Pair))
	_ = s.readLoop(ctx, url, "trade", func(data []byte) {
		var msg tradeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil {
			return
		}
		onTick(price)
	})
}

// readLoop dials the stream and dispatches every text message, reconnecting
// on error until the context ends.
func (s *BinanceSource) readLoop(ctx context.Context, url, label string, dispatch func([]byte)) error {
	backoff := time.Duration(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			backoff = nextBackoff(backoff)
			log.Printf("[WARN] binance %s dial failed: %v, retrying in %v", label, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		conn.SetReadLimit(1 << 20)
		backoff = 0

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[WARN] binance %s stream read: %v, reconnecting", label, err)
				break
			}
			dispatch(data)
		}
	}
}

func parseKlineFields(msg klineMessage) (model.OHLCV, bool) {
	vals := make([]float64, 5)
	for i, str := range []string{msg.Kline.Open, msg.Kline.High, msg.Kline.Low, msg.Kline.Close, msg.Kline.Volume} {
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return model.OHLCV{}, false
		}
		vals[i] = v
	}
	return model.OHLCV{
		Time:   time.UnixMilli(msg.Kline.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}

// intervalString maps a bar size to the Binance interval token (m/h only).
func intervalString(d time.Duration) (string, error) {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d/time.Hour)), nil
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d/time.Minute)), nil
	default:
		return "", fmt.Errorf("unsupported bar size: %v", d)
	}
}
