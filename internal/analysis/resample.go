package analysis

import (
	"time"

	"PairWatch/internal/model"
)

// Resample aggregates minute bars into width-minute buckets: open is the
// first value in the bucket, high the max, low the min, close the last, and
// volume the sum. Width 1 is the native resolution and returns the input
// unchanged. Input must be in chronological order; empty buckets simply do
// not appear.
func Resample(bars []model.OHLCV, width int) []model.OHLCV {
	if width <= 1 || len(bars) == 0 {
		return bars
	}
	bucket := time.Duration(width) * time.Minute

	out := make([]model.OHLCV, 0, len(bars)/width+1)
	var cur model.OHLCV
	var curStart time.Time
	open := false
	for _, b := range bars {
		start := b.Time.UTC().Truncate(bucket)
		if !open || !start.Equal(curStart) {
			if open {
				out = append(out, cur)
			}
			cur = b
			cur.Time = start
			curStart = start
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// InnerJoin pairs two chronological series on exact matching timestamps and
// returns the joined close prices. Buckets present in only one series are
// dropped, so asymmetric trading calendars naturally shrink the overlap.
func InnerJoin(a, b []model.OHLCV) (closesA, closesB []float64) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Time.Before(b[j].Time):
			i++
		case b[j].Time.Before(a[i].Time):
			j++
		default:
			closesA = append(closesA, a[i].Close)
			closesB = append(closesB, b[j].Close)
			i++
			j++
		}
	}
	return closesA, closesB
}
