package analysis

import (
	"log"

	"PairWatch/internal/model"
)

// Timeframe is one configured resampling width.
type Timeframe struct {
	Label   string
	Minutes int
}

// DefaultTimeframes are the widths analyzed each cycle.
var DefaultTimeframes = []Timeframe{
	{"1m", 1},
	{"5m", 5},
	{"15m", 15},
	{"1h", 60},
}

// minJoinedRows is the minimum overlap after the inner join for a timeframe
// to be analyzed.
const minJoinedRows = 10

// MultiTimeframe resamples both aligned series to every configured width and
// runs the correlation engine per timeframe. A failure in one timeframe is
// logged and yields the undefined sentinel for that timeframe only; it never
// aborts the others.
func MultiTimeframe(barsA, barsB []model.OHLCV, timeframes []Timeframe, opts Options) model.MultiTimeframeResult {
	if len(timeframes) == 0 {
		timeframes = DefaultTimeframes
	}
	results := make(model.MultiTimeframeResult, len(timeframes))
	for _, tf := range timeframes {
		results[tf.Label] = analyzeTimeframe(barsA, barsB, tf, opts)
	}
	return results
}

func analyzeTimeframe(barsA, barsB []model.OHLCV, tf Timeframe, opts Options) (res model.CorrelationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] timeframe %s analysis panicked: %v", tf.Label, r)
			res = model.Undefined()
		}
	}()

	ra := Resample(barsA, tf.Minutes)
	rb := Resample(barsB, tf.Minutes)
	if len(ra) < minJoinedRows || len(rb) < minJoinedRows {
		return model.Undefined()
	}

	closesA, closesB := InnerJoin(ra, rb)
	if len(closesA) < minJoinedRows {
		return model.Undefined()
	}
	return Calculate(closesA, closesB, opts)
}
