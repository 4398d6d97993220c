package buffer

import (
	"log"
	"sync"

	"PairWatch/internal/model"
)

// DefaultCapacity bounds a rolling buffer when no explicit capacity is given.
const DefaultCapacity = 1500

// RollingBuffer holds the most recent bars for one series in chronological
// order, bounded to a fixed capacity. Each buffer is owned by exactly one
// source for writes; readers take copies via Snapshot.
type RollingBuffer struct {
	mu       sync.Mutex
	capacity int
	bars     []model.OHLCV
}

// NewRollingBuffer creates a buffer holding at most capacity bars.
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RollingBuffer{
		capacity: capacity,
		bars:     make([]model.OHLCV, 0, capacity),
	}
}

// Append adds a completed bar, evicting the oldest entry once the buffer is
// full. Bars with any non-finite field are dropped and reported as false;
// append never fails otherwise.
func (rb *RollingBuffer) Append(bar model.OHLCV) bool {
	if !bar.Valid() {
		log.Printf("[WARN] dropping invalid bar at %s (non-finite field)", bar.Time.UTC().Format("15:04:05"))
		return false
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.push(bar)
	return true
}

// Upsert behaves like Append, except that a bar sharing the newest entry's
// timestamp replaces it instead of creating a duplicate: high/low become the
// running max/min, close takes the latest value, and volume accumulates.
// This is the path for partial-bar updates from a live source; backfill
// writes finalized bars through Append.
func (rb *RollingBuffer) Upsert(bar model.OHLCV) bool {
	if !bar.Valid() {
		log.Printf("[WARN] dropping invalid bar at %s (non-finite field)", bar.Time.UTC().Format("15:04:05"))
		return false
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if n := len(rb.bars); n > 0 && rb.bars[n-1].Time.Equal(bar.Time) {
		last := &rb.bars[n-1]
		if bar.High > last.High {
			last.High = bar.High
		}
		if bar.Low < last.Low {
			last.Low = bar.Low
		}
		last.Close = bar.Close
		last.Volume += bar.Volume
		return true
	}
	rb.push(bar)
	return true
}

// Load bulk-appends finalized historical bars, typically once at startup
// before streaming begins. Invalid bars are skipped. Returns the number of
// bars accepted.
func (rb *RollingBuffer) Load(bars []model.OHLCV) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	accepted := 0
	for _, b := range bars {
		if !b.Valid() {
			continue
		}
		rb.push(b)
		accepted++
	}
	return accepted
}

// push assumes the lock is held.
func (rb *RollingBuffer) push(bar model.OHLCV) {
	rb.bars = append(rb.bars, bar)
	if len(rb.bars) > rb.capacity {
		rb.bars = rb.bars[1:]
	}
}

// Len returns the current number of bars.
func (rb *RollingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.bars)
}

// Snapshot returns an ordered copy of the buffer contents, safe to read
// concurrently with future appends.
func (rb *RollingBuffer) Snapshot() []model.OHLCV {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	out := make([]model.OHLCV, len(rb.bars))
	copy(out, rb.bars)
	return out
}

// Last returns the most recent bar, if any.
func (rb *RollingBuffer) Last() (model.OHLCV, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.bars) == 0 {
		return model.OHLCV{}, false
	}
	return rb.bars[len(rb.bars)-1], true
}
