package model

import "math"

// Correlation strength categories, classified by |coefficient|.
const (
	StrengthStrong   = "strong"   // |r| > 0.7
	StrengthModerate = "moderate" // |r| > 0.4
	StrengthWeak     = "weak"     // |r| > 0.2
	StrengthNone     = "none"
)

// LeaderSync marks a pair with no significant lead at the chosen lag.
const LeaderSync = "SYNC"

// CorrelationResult is the outcome of one correlation + lead/lag pass over a
// pair of aligned close-price series. Instances are built fresh each analysis
// cycle and never mutated.
type CorrelationResult struct {
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	LeadLag     int     `json:"lead_lag"` // positive = series A leads, negative = series B leads
	LeadLagCorr float64 `json:"lead_lag_corr"`
	Strength    string  `json:"strength"`
	Leader      string  `json:"leader"`
	Color       string  `json:"color"`
}

// Undefined is the sentinel result used for insufficient data and for
// numerically degenerate series: zero correlation, p-value 1, no lag.
// The original design deliberately conflates "not enough data yet" with
// "genuinely no correlation"; both surface as this value.
func Undefined() CorrelationResult {
	return CorrelationResult{
		PValue:   1,
		Strength: StrengthNone,
		Leader:   LeaderSync,
		Color:    colorFor(StrengthNone),
	}
}

// NewCorrelationResult assembles a result from raw statistics, deriving
// strength, leader and color. symbolA/symbolB label the leading side.
func NewCorrelationResult(corr, pValue float64, leadLag int, leadLagCorr float64, symbolA, symbolB string) CorrelationResult {
	strength := ClassifyStrength(corr)
	leader := LeaderSync
	if leadLag >= 1 {
		leader = symbolA
	} else if leadLag <= -1 {
		leader = symbolB
	}
	return CorrelationResult{
		Correlation: corr,
		PValue:      pValue,
		LeadLag:     leadLag,
		LeadLagCorr: leadLagCorr,
		Strength:    strength,
		Leader:      leader,
		Color:       colorFor(strength),
	}
}

// ClassifyStrength maps a correlation coefficient to its category by
// absolute value: >0.7 strong, >0.4 moderate, >0.2 weak, else none.
func ClassifyStrength(corr float64) string {
	switch abs := math.Abs(corr); {
	case abs > 0.7:
		return StrengthStrong
	case abs > 0.4:
		return StrengthModerate
	case abs > 0.2:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

func colorFor(strength string) string {
	switch strength {
	case StrengthStrong:
		return "#00C853"
	case StrengthModerate:
		return "#FFD600"
	case StrengthWeak:
		return "#FF9100"
	default:
		return "#FF1744"
	}
}

// MultiTimeframeResult maps a timeframe label ("1m", "5m", ...) to the
// correlation result computed at that width. Built atomically each cycle.
type MultiTimeframeResult map[string]CorrelationResult
