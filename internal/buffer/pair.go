package buffer

import (
	"sync"

	"PairWatch/internal/model"
)

// Side selects one of the two series in a PairBook.
type Side int

const (
	// SeriesA is the equity-index futures side.
	SeriesA Side = iota
	// SeriesB is the crypto side.
	SeriesB
)

// PairBook maintains the two source-owned rolling buffers on a shared
// minute-aligned temporal grid. The two producers run on independent
// schedules; all timestamps are truncated to the start of the containing
// UTC minute before storage so the series can be joined later.
type PairBook struct {
	SymbolA string
	SymbolB string

	bufs [2]*RollingBuffer

	mu        sync.Mutex
	pending   [2]*model.OHLCV
	lastPrice [2]float64
}

// NewPairBook creates a synchronized pair of buffers with the given capacity.
func NewPairBook(symbolA, symbolB string, capacity int) *PairBook {
	return &PairBook{
		SymbolA: symbolA,
		SymbolB: symbolB,
		bufs:    [2]*RollingBuffer{NewRollingBuffer(capacity), NewRollingBuffer(capacity)},
	}
}

// Symbol returns the display symbol for a side.
func (p *PairBook) Symbol(side Side) string {
	if side == SeriesA {
		return p.SymbolA
	}
	return p.SymbolB
}

// Backfill bulk-loads finalized historical bars for one side, aligning each
// timestamp to its minute. Returns the number of bars accepted.
func (p *PairBook) Backfill(side Side, bars []model.OHLCV) int {
	aligned := make([]model.OHLCV, len(bars))
	for i, b := range bars {
		b.Time = b.AlignMinute()
		aligned[i] = b
	}
	return p.bufs[side].Load(aligned)
}

// AppendBar stores a completed bar from a live source. A bar landing on the
// same aligned minute as the newest entry merges into it rather than
// duplicating the timestamp.
func (p *PairBook) AppendBar(side Side, bar model.OHLCV) bool {
	bar.Time = bar.AlignMinute()
	ok := p.bufs[side].Upsert(bar)
	if ok {
		p.mu.Lock()
		p.lastPrice[side] = bar.Close
		p.mu.Unlock()
	}
	return ok
}

// MergePartial folds a sub-minute update (e.g. a 5-second bar) into the
// side's pending minute bar. When the update opens a new minute, the
// previous pending bar is committed to the buffer and returned so the
// caller can treat it as completed.
func (p *PairBook) MergePartial(side Side, bar model.OHLCV) (model.OHLCV, bool) {
	if !bar.Valid() {
		return model.OHLCV{}, false
	}
	minute := bar.AlignMinute()

	p.mu.Lock()
	p.lastPrice[side] = bar.Close
	cur := p.pending[side]
	if cur == nil || !cur.Time.Equal(minute) {
		var completed model.OHLCV
		committed := false
		if cur != nil {
			completed = *cur
			committed = true
		}
		fresh := bar
		fresh.Time = minute
		p.pending[side] = &fresh
		p.mu.Unlock()

		if committed {
			p.bufs[side].Upsert(completed)
			return completed, true
		}
		return model.OHLCV{}, false
	}

	// Same minute: running max/min, latest close, accumulated volume.
	if bar.High > cur.High {
		cur.High = bar.High
	}
	if bar.Low < cur.Low {
		cur.Low = bar.Low
	}
	cur.Close = bar.Close
	cur.Volume += bar.Volume
	p.mu.Unlock()
	return model.OHLCV{}, false
}

// UpdateTick records the latest traded price for display purposes. Ticks
// never enter the buffers; correlation operates on completed bars only.
func (p *PairBook) UpdateTick(side Side, price float64) {
	if !model.IsFinite(price) {
		return
	}
	p.mu.Lock()
	p.lastPrice[side] = price
	p.mu.Unlock()
}

// LastPrices returns the most recent observed prices for both sides.
func (p *PairBook) LastPrices() (a, b float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPrice[SeriesA], p.lastPrice[SeriesB]
}

// Snapshot returns independent copies of both series taken at this moment.
// The two snapshots are each internally consistent; no cross-source ordering
// is implied.
func (p *PairBook) Snapshot() (a, b []model.OHLCV) {
	return p.bufs[SeriesA].Snapshot(), p.bufs[SeriesB].Snapshot()
}

// Len returns the bar count for one side.
func (p *PairBook) Len(side Side) int {
	return p.bufs[side].Len()
}
