package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"PairWatch/internal/model"
)

// normEpsilon guards normalization against zero-variance series.
const normEpsilon = 1e-10

// LeadLag searches integer offsets in [-maxLag, +maxLag] for the lag at
// which one return series best predicts the other. Positive lag means
// series A leads B by that many periods; negative means B leads A.
//
// A maxLag of zero selects the dynamic window clamp(n/10, 5, 30).
//
// The best lag is only reported when it clears the significance gate:
// |best| >= minCorr and |best| - |sync| >= minGain, where sync is the
// correlation at lag zero. Otherwise the series are deemed synchronized and
// (0, sync) is returned. Without this gate the best-of-all-lags choice flips
// sign noisily on random data.
func LeadLag(returnsA, returnsB []float64, maxLag int, minCorr, minGain float64) (int, float64) {
	n := len(returnsA)
	if len(returnsB) < n {
		n = len(returnsB)
	}
	if maxLag <= 0 {
		maxLag = dynamicMaxLag(n)
	}
	if n < 2*maxLag+1 {
		return 0, 0
	}

	a, okA := normalize(returnsA[:n])
	b, okB := normalize(returnsB[:n])
	if !okA || !okB {
		// A constant series cannot support lag analysis.
		return 0, 0
	}

	bestLag, bestCorr := 0, 0.0
	syncCorr := 0.0
	found := false
	for lag := -maxLag; lag <= maxLag; lag++ {
		var corr float64
		switch {
		case lag < 0:
			// B leads A by |lag|.
			corr = stat.Correlation(b[:n+lag], a[-lag:], nil)
		case lag > 0:
			// A leads B by lag.
			corr = stat.Correlation(a[:n-lag], b[lag:], nil)
		default:
			corr = stat.Correlation(a, b, nil)
		}
		if !model.IsFinite(corr) {
			continue
		}
		if lag == 0 {
			syncCorr = corr
		}
		if !found || math.Abs(corr) > math.Abs(bestCorr) {
			bestLag, bestCorr = lag, corr
			found = true
		}
	}
	if !found {
		return 0, 0
	}

	if math.Abs(bestCorr) < minCorr || math.Abs(bestCorr)-math.Abs(syncCorr) < minGain {
		return 0, syncCorr
	}
	return bestLag, bestCorr
}

// dynamicMaxLag scales the search window with the sample size: n/10,
// clamped to [5, 30].
func dynamicMaxLag(n int) int {
	lag := n / 10
	if lag < 5 {
		lag = 5
	}
	if lag > 30 {
		lag = 30
	}
	return lag
}

// normalize returns the series shifted to zero mean and scaled to unit
// variance. ok is false when the standard deviation is below the epsilon
// guard.
func normalize(xs []float64) ([]float64, bool) {
	mean, std := stat.MeanStdDev(xs, nil)
	if !model.IsFinite(std) || std < normEpsilon {
		return nil, false
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = (x - mean) / (std + normEpsilon)
	}
	return out, true
}
