package analysis

import (
	"math"
	"testing"
)

// shiftedReturns builds a pair of return series where a leads b by k periods.
func shiftedReturns(n, k int) (a, b []float64) {
	base := make([]float64, n+k)
	for i := range base {
		base[i] = math.Sin(0.9*float64(i)) + 0.4*math.Sin(2.7*float64(i)+1)
	}
	return base[k:], base[:n]
}

func TestLeadLag_RecoversShift(t *testing.T) {
	for _, k := range []int{1, 2, 4} {
		a, b := shiftedReturns(60, k)
		lag, corr := LeadLag(a, b, 5, 0.2, 0.05)
		if lag != k {
			t.Errorf("shift %d: expected lag %d, got %d (corr=%.3f)", k, k, lag, corr)
		}
		if corr < 0.9 {
			t.Errorf("shift %d: expected near-perfect correlation at best lag, got %.3f", k, corr)
		}
	}
}

func TestLeadLag_NegativeShift(t *testing.T) {
	a, b := shiftedReturns(60, 3)
	// Swapped arguments: b now leads a.
	lag, corr := LeadLag(b, a, 5, 0.2, 0.05)
	if lag != -3 {
		t.Errorf("expected lag -3, got %d", lag)
	}
	if corr < 0.9 {
		t.Errorf("expected near-perfect correlation, got %.3f", corr)
	}
}

func TestLeadLag_TooShortForWindow(t *testing.T) {
	a, b := shiftedReturns(10, 2)
	// maxLag 5 needs at least 11 points.
	if lag, corr := LeadLag(a, b, 5, 0.2, 0.05); lag != 0 || corr != 0 {
		t.Errorf("expected (0, 0) for a short series, got (%d, %.3f)", lag, corr)
	}
}

func TestLeadLag_ConstantSeries(t *testing.T) {
	a := make([]float64, 60)
	_, b := shiftedReturns(60, 0)
	for i := range a {
		a[i] = 0.001
	}
	if lag, corr := LeadLag(a, b, 5, 0.2, 0.05); lag != 0 || corr != 0 {
		t.Errorf("expected (0, 0) for a zero-variance series, got (%d, %.3f)", lag, corr)
	}
}

func TestLeadLag_SynchronizedGate(t *testing.T) {
	// Identical series: lag 0 already carries the maximum correlation, so no
	// shifted lag can clear the gain gate.
	a, _ := shiftedReturns(60, 0)
	lag, corr := LeadLag(a, a, 5, 0.2, 0.05)
	if lag != 0 {
		t.Errorf("expected synchronized result, got lag %d", lag)
	}
	if corr < 0.9999 {
		t.Errorf("expected sync correlation ~1, got %.4f", corr)
	}
}

func TestDynamicMaxLag(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{10, 5},
		{49, 5},
		{50, 5},
		{100, 10},
		{299, 29},
		{300, 30},
		{5000, 30},
	}
	for _, tt := range tests {
		if got := dynamicMaxLag(tt.n); got != tt.expected {
			t.Errorf("dynamicMaxLag(%d) = %d, expected %d", tt.n, got, tt.expected)
		}
	}
}

func TestNormalize(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	out, ok := normalize(xs)
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	var sum float64
	for _, v := range out {
		sum += v
	}
	if math.Abs(sum/float64(len(out))) > 1e-9 {
		t.Errorf("expected ~zero mean, got %v", sum/float64(len(out)))
	}

	flat := []float64{2, 2, 2, 2}
	if _, ok := normalize(flat); ok {
		t.Error("expected failure for a constant series")
	}
}
