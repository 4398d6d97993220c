package analysis

import (
	"math"
	"testing"
)

var testOpts = DefaultOptions("ES", "BTC")

// trending produces a deterministic varying price path.
func trending(base float64, n int) []float64 {
	out := make([]float64, n)
	p := base
	for i := 0; i < n; i++ {
		p *= 1 + 0.002*math.Sin(0.9*float64(i))
		out[i] = p
	}
	return out
}

func TestCalculate_InsufficientPricePoints(t *testing.T) {
	// Two aligned bars per side is far below the 10-point floor.
	a := []float64{100, 101}
	b := []float64{50, 49}
	res := Calculate(a, b, testOpts)
	if res.Correlation != 0 || res.PValue != 1 {
		t.Errorf("expected undefined sentinel, got corr=%v p=%v", res.Correlation, res.PValue)
	}
	if res.Strength != "none" || res.Leader != "SYNC" {
		t.Errorf("expected none/SYNC, got %s/%s", res.Strength, res.Leader)
	}
}

func TestCalculate_IdenticalSeries(t *testing.T) {
	prices := trending(5000, 60)
	res := Calculate(prices, prices, testOpts)
	if res.Correlation < 0.9999 {
		t.Errorf("identical series should correlate at ~1, got %v", res.Correlation)
	}
	if res.PValue > 1e-6 {
		t.Errorf("expected vanishing p-value, got %v", res.PValue)
	}
	if res.LeadLag != 0 {
		t.Errorf("identical series should be synchronized, got lag %d", res.LeadLag)
	}
	if res.Leader != "SYNC" {
		t.Errorf("expected SYNC leader, got %q", res.Leader)
	}
	if res.Strength != "strong" {
		t.Errorf("expected strong, got %q", res.Strength)
	}
}

func TestCalculate_ConstantSeries(t *testing.T) {
	a := make([]float64, 30)
	b := trending(100, 30)
	for i := range a {
		a[i] = 42
	}
	res := Calculate(a, b, testOpts)
	if res.Correlation != 0 || res.PValue != 1 {
		t.Errorf("constant series should yield the sentinel, got corr=%v p=%v", res.Correlation, res.PValue)
	}
}

func TestCalculate_NonFinitePricesFiltered(t *testing.T) {
	// Every return pair touches a NaN, so fewer than 5 pairs survive.
	a := make([]float64, 12)
	b := make([]float64, 12)
	for i := range a {
		if i%2 == 1 {
			a[i] = math.NaN()
		} else {
			a[i] = 100 + float64(i)
		}
		b[i] = 50 + float64(i)
	}
	res := Calculate(a, b, testOpts)
	if res.PValue != 1 || res.Correlation != 0 {
		t.Errorf("expected sentinel for filtered-out returns, got %+v", res)
	}
}

func TestCalculate_MirroredPair(t *testing.T) {
	// Swapping the inputs preserves the coefficient and flips the lag sign.
	k := 3
	n := 80
	base := make([]float64, n+k)
	for i := range base {
		base[i] = math.Sin(0.9*float64(i)) + 0.4*math.Sin(2.7*float64(i)+1)
	}
	pa := pricesFromReturns(5000, base[k:])
	pb := pricesFromReturns(90000, base[:n])

	ab := Calculate(pa, pb, testOpts)
	ba := Calculate(pb, pa, Options{SymbolA: "BTC", SymbolB: "ES", MinLagCorr: 0.2, MinLagGain: 0.05})

	if math.Abs(ab.Correlation-ba.Correlation) > 1e-9 {
		t.Errorf("correlation not symmetric: %v vs %v", ab.Correlation, ba.Correlation)
	}
	if ab.LeadLag != -ba.LeadLag {
		t.Errorf("lag should flip sign on swap: %d vs %d", ab.LeadLag, ba.LeadLag)
	}
	if ab.LeadLag != k {
		t.Errorf("expected lead of %d periods, got %d", k, ab.LeadLag)
	}
	if ab.Leader != "ES" || ba.Leader != "ES" {
		t.Errorf("leading symbol should be ES from both directions, got %q / %q", ab.Leader, ba.Leader)
	}
}

func pricesFromReturns(base float64, returns []float64) []float64 {
	out := make([]float64, len(returns)+1)
	out[0] = base
	for i, r := range returns {
		out[i+1] = out[i] * (1 + 0.002*r)
	}
	return out
}

func TestPearsonPValue(t *testing.T) {
	if p := pearsonPValue(0, 30); p < 0.99 {
		t.Errorf("zero correlation should be insignificant, p=%v", p)
	}
	if p := pearsonPValue(0.9, 50); p > 1e-6 {
		t.Errorf("strong correlation over 50 samples should be significant, p=%v", p)
	}
	if p := pearsonPValue(1, 10); p != 0 {
		t.Errorf("perfect correlation should give p=0, got %v", p)
	}
	if p := pearsonPValue(0.5, 2); p != 1 {
		t.Errorf("two samples carry no significance, got %v", p)
	}
	// Significance grows with sample size at fixed r.
	small := pearsonPValue(0.4, 10)
	large := pearsonPValue(0.4, 200)
	if large >= small {
		t.Errorf("expected p to shrink with n: n=10 gives %v, n=200 gives %v", small, large)
	}
}

func TestPairedReturns(t *testing.T) {
	a := []float64{100, 110, 99}
	b := []float64{50, 55, 66}
	ra, rb := pairedReturns(a, b)
	if len(ra) != 2 || len(rb) != 2 {
		t.Fatalf("expected 2 return pairs, got %d/%d", len(ra), len(rb))
	}
	if math.Abs(ra[0]-0.1) > 1e-9 || math.Abs(rb[0]-0.1) > 1e-9 {
		t.Errorf("unexpected first returns: %v / %v", ra[0], rb[0])
	}
	if math.Abs(rb[1]-0.2) > 1e-9 {
		t.Errorf("unexpected second return: %v", rb[1])
	}
}
