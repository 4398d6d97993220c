package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"PairWatch/internal/model"
)

const (
	// minPricePoints is the minimum raw series length before any
	// correlation is attempted (yields >= 9 return points).
	minPricePoints = 10
	// minReturnPairs is the minimum number of finite return pairs.
	minReturnPairs = 5
	// returnEpsilon guards the return denominator against zero prices.
	returnEpsilon = 1e-10
)

// Options configures one correlation pass. The lead/lag gate constants are
// empirically chosen defaults; override them through config, not here.
type Options struct {
	SymbolA string
	SymbolB string

	// MaxLag bounds the cross-correlation search. Zero means dynamic:
	// clamp(n/10, 5, 30) for n valid return points.
	MaxLag int
	// MinLagCorr is the minimum |corr| at the best lag for it to be reported.
	MinLagCorr float64
	// MinLagGain is the minimum improvement of |best| over |sync| required.
	MinLagGain float64
}

// DefaultOptions returns the standard gate thresholds for a labeled pair.
func DefaultOptions(symbolA, symbolB string) Options {
	return Options{
		SymbolA:    symbolA,
		SymbolB:    symbolB,
		MinLagCorr: 0.2,
		MinLagGain: 0.05,
	}
}

// Calculate computes Pearson correlation of returns between two aligned
// price series, plus the lead/lag relationship. It is deterministic, has no
// side effects, and never fails on data quality: insufficient or degenerate
// input yields the undefined sentinel result.
func Calculate(pricesA, pricesB []float64, opts Options) model.CorrelationResult {
	if len(pricesA) < minPricePoints || len(pricesB) < minPricePoints {
		return model.Undefined()
	}

	// Most recent common window.
	n := len(pricesA)
	if len(pricesB) < n {
		n = len(pricesB)
	}
	a := pricesA[len(pricesA)-n:]
	b := pricesB[len(pricesB)-n:]

	retA, retB := pairedReturns(a, b)
	if len(retA) < minReturnPairs {
		return model.Undefined()
	}

	corr := stat.Correlation(retA, retB, nil)
	if !model.IsFinite(corr) {
		// Constant series: no defined correlation.
		return model.Undefined()
	}
	p := pearsonPValue(corr, len(retA))

	lag, lagCorr := LeadLag(retA, retB, opts.MaxLag, opts.MinLagCorr, opts.MinLagGain)

	return model.NewCorrelationResult(corr, p, lag, lagCorr, opts.SymbolA, opts.SymbolB)
}

// pairedReturns computes simple returns for both series and filters out any
// index where either return is non-finite, keeping the pairing aligned.
func pairedReturns(a, b []float64) ([]float64, []float64) {
	retA := make([]float64, 0, len(a)-1)
	retB := make([]float64, 0, len(b)-1)
	for i := 1; i < len(a); i++ {
		ra := (a[i] - a[i-1]) / (a[i-1] + returnEpsilon)
		rb := (b[i] - b[i-1]) / (b[i-1] + returnEpsilon)
		if !model.IsFinite(ra) || !model.IsFinite(rb) {
			continue
		}
		retA = append(retA, ra)
		retB = append(retB, rb)
	}
	return retA, retB
}

// pearsonPValue computes the two-tailed significance of a Pearson
// coefficient over n samples via the Student's-t distribution with n-2
// degrees of freedom.
func pearsonPValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	denom := 1 - r*r
	if denom <= 0 {
		// |r| == 1 exactly.
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * dist.CDF(-math.Abs(t))
	if !model.IsFinite(p) {
		return 1
	}
	if p > 1 {
		p = 1
	}
	return p
}
