package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PairWatch/internal/analysis"
	"PairWatch/internal/buffer"
	"PairWatch/internal/model"
	"PairWatch/internal/recorder"
)

// Engine drives the analysis cycle: whenever a new completed bar lands on
// either side of the pair book, or on the periodic fallback timer, it pulls
// fresh snapshots, runs the multi-timeframe analysis, and publishes the
// combined result. All computation runs on a single goroutine; triggers
// coalesce so bursts of bars cause at most one queued recompute.
type Engine struct {
	book       *buffer.PairBook
	opts       analysis.Options
	timeframes []analysis.Timeframe
	rec        recorder.Recorder

	cron    *cron.Cron
	trigger chan struct{}

	mu     sync.Mutex
	latest model.MultiTimeframeResult
	cycles uint64
	subs   map[int]chan model.MultiTimeframeResult
	nextID int
}

// New creates an engine over the given pair book.
func New(book *buffer.PairBook, opts analysis.Options, rec recorder.Recorder) *Engine {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Engine{
		book:       book,
		opts:       opts,
		timeframes: analysis.DefaultTimeframes,
		rec:        rec,
		cron:       cron.New(cron.WithSeconds()),
		trigger:    make(chan struct{}, 1),
		subs:       make(map[int]chan model.MultiTimeframeResult),
	}
}

// Start registers the periodic fallback trigger and launches the analysis
// loop. recomputeCron is a six-field cron expression, e.g. "*/30 * * * * *".
func (e *Engine) Start(ctx context.Context, recomputeCron string) error {
	if _, err := e.cron.AddFunc(recomputeCron, e.Notify); err != nil {
		return fmt.Errorf("register recompute trigger: %w", err)
	}
	if _, err := e.cron.AddFunc("0 0 * * * *", e.logStats); err != nil {
		return fmt.Errorf("register stats task: %w", err)
	}
	e.cron.Start()
	go e.loop(ctx)
	log.Println("[INFO] analysis engine started")
	return nil
}

// Notify requests a recompute. Safe to call from any goroutine; calls while
// a recompute is already queued are absorbed.
func (e *Engine) Notify() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

func (e *Engine) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.cron.Stop()
			e.closeSubs()
			log.Println("[INFO] analysis engine stopped")
			return
		case <-e.trigger:
			e.runCycle()
		}
	}
}

func (e *Engine) runCycle() {
	barsA, barsB := e.book.Snapshot()
	result := analysis.MultiTimeframe(barsA, barsB, e.timeframes, e.opts)

	e.mu.Lock()
	e.latest = result
	e.cycles++
	subs := make([]chan model.MultiTimeframeResult, 0, len(e.subs))
	for _, ch := range e.subs {
		subs = append(subs, ch)
	}
	e.mu.Unlock()

	if err := e.rec.RecordCycle(time.Now().UTC(), result); err != nil {
		log.Printf("[WARN] record cycle: %v", err)
	}

	for _, ch := range subs {
		select {
		case ch <- result:
		default: // slow consumer, drop rather than stall the cycle
		}
	}
}

// Snapshot returns the latest computed result. The returned map is a copy;
// callers may hold it across suspension points.
func (e *Engine) Snapshot() model.MultiTimeframeResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(model.MultiTimeframeResult, len(e.latest))
	for k, v := range e.latest {
		out[k] = v
	}
	return out
}

// Subscribe registers for one notification per completed analysis cycle.
// The returned cancel func must be called to release the subscription.
func (e *Engine) Subscribe() (<-chan model.MultiTimeframeResult, func()) {
	ch := make(chan model.MultiTimeframeResult, 4)
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) closeSubs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

func (e *Engine) logStats() {
	e.mu.Lock()
	cycles := e.cycles
	e.mu.Unlock()
	log.Printf("[INFO] stats: %s bars=%d %s bars=%d cycles=%d",
		e.book.SymbolA, e.book.Len(buffer.SeriesA),
		e.book.SymbolB, e.book.Len(buffer.SeriesB), cycles)
}
