package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"PairWatch/internal/buffer"
	"PairWatch/internal/engine"
	"PairWatch/internal/model"
)

// Tick broadcast throttles. The crypto trade stream can burst far beyond
// what a browser needs; futures ticks arrive slower but are throttled too.
const (
	cryptoTickInterval  = 20 * time.Millisecond
	futuresTickInterval = 50 * time.Millisecond
)

// Server exposes the dashboard, the websocket stream and the snapshot API.
type Server struct {
	mux      *http.ServeMux
	book     *buffer.PairBook
	eng      *engine.Engine
	contract string

	// hourly history shipped to viewers on connect, display only
	histA []model.OHLCV
	histB []model.OHLCV

	mu       sync.Mutex
	clients  map[*client]struct{}
	lastTick map[string]time.Time
	tickMin  map[string]time.Duration
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// New creates the server. contract is the display label for the futures leg;
// histA/histB are the hourly historical sets sent in the init message.
func New(book *buffer.PairBook, eng *engine.Engine, contract string, histA, histB []model.OHLCV) (*Server, error) {
	static, err := staticHandler()
	if err != nil {
		return nil, err
	}
	s := &Server{
		mux:      http.NewServeMux(),
		book:     book,
		eng:      eng,
		contract: contract,
		histA:    histA,
		histB:    histB,
		clients:  make(map[*client]struct{}),
		lastTick: make(map[string]time.Time),
		tickMin: map[string]time.Duration{
			book.SymbolA: futuresTickInterval,
			book.SymbolB: cryptoTickInterval,
		},
	}
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/", static)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// barJSON is the wire form of a bar, matching the charting library's shape.
type barJSON struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func toBarJSON(b model.OHLCV) barJSON {
	return barJSON{
		Time:   b.Time.Unix(),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

func toBarsJSON(bars []model.OHLCV) []barJSON {
	out := make([]barJSON, len(bars))
	for i, b := range bars {
		out[i] = toBarJSON(b)
	}
	return out
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-host dashboard, no cross-origin surface
	})
	if err != nil {
		log.Printf("[WARN] websocket accept: %v", err)
		return
	}
	c := &client{conn: conn}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.mu.Unlock()
	log.Printf("[INFO] viewer connected (%d total)", total)

	// Initial payload: backfills, display history, latest result.
	barsA, barsB := s.book.Snapshot()
	init := map[string]any{
		"type":     "init",
		"symbols":  []string{s.book.SymbolA, s.book.SymbolB},
		"contract": s.contract,
		"backfill": map[string][]barJSON{
			s.book.SymbolA: toBarsJSON(barsA),
			s.book.SymbolB: toBarsJSON(barsB),
		},
		"historical": map[string][]barJSON{
			s.book.SymbolA: toBarsJSON(s.histA),
			s.book.SymbolB: toBarsJSON(s.histB),
		},
		"correlation": s.eng.Snapshot(),
	}
	if err := c.send(r.Context(), init); err != nil {
		s.drop(c)
		return
	}

	// Viewers only listen; the read loop exists to notice disconnects.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	s.drop(c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	total := len(s.clients)
	s.mu.Unlock()
	if ok {
		c.conn.Close(websocket.StatusNormalClosure, "")
		log.Printf("[INFO] viewer disconnected (%d total)", total)
	}
}

func (c *client) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// broadcast sends a message to every connected viewer; failed clients are
// dropped.
func (s *Server) broadcast(v any) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	if len(clients) == 0 {
		return
	}
	for _, c := range clients {
		if err := c.send(context.Background(), v); err != nil {
			s.drop(c)
		}
	}
}

// PublishBar pushes a completed bar to all viewers.
func (s *Server) PublishBar(symbol string, bar model.OHLCV) {
	s.broadcast(map[string]any{
		"type":   "bar",
		"symbol": symbol,
		"data":   toBarJSON(bar),
	})
}

// PublishTick pushes a live price, throttled per symbol.
func (s *Server) PublishTick(symbol string, price float64) {
	if !model.IsFinite(price) {
		return
	}
	now := time.Now()
	s.mu.Lock()
	min := s.tickMin[symbol]
	if now.Sub(s.lastTick[symbol]) < min {
		s.mu.Unlock()
		return
	}
	s.lastTick[symbol] = now
	s.mu.Unlock()

	s.broadcast(map[string]any{
		"type":   "tick",
		"symbol": symbol,
		"price":  price,
	})
}

// PublishResult pushes a completed analysis cycle to all viewers.
func (s *Server) PublishResult(result model.MultiTimeframeResult) {
	s.broadcast(map[string]any{
		"type": "correlation",
		"data": result,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"updated":    time.Now().UTC(),
		"timeframes": s.eng.Snapshot(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	viewers := len(s.clients)
	s.mu.Unlock()
	priceA, priceB := s.book.LastPrices()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"viewers": viewers,
		"bars": map[string]int{
			s.book.SymbolA: s.book.Len(buffer.SeriesA),
			s.book.SymbolB: s.book.Len(buffer.SeriesB),
		},
		"last_prices": map[string]float64{
			s.book.SymbolA: priceA,
			s.book.SymbolB: priceB,
		},
		"time": time.Now().UTC(),
	})
}
