package backtest

import (
	"context"
	"math"

	"github.com/fedlens/fedlens/internal/domain"
)

// Volatility regime buckets. AnalyzeByRegime always returns all of them, in
// this order, so downstream consumers can render a stable table.
const (
	RegimeLowVol  = "low_vol"
	RegimeMidVol  = "mid_vol"
	RegimeHighVol = "high_vol"
)

var regimeOrder = []string{RegimeLowVol, RegimeMidVol, RegimeHighVol}

// Rolling-volatility parameters for regime assignment.
const (
	regimeWindow     = 12
	lowVolThreshold  = 0.04
	highVolThreshold = 0.10
)

// RegimeStat is the per-regime accuracy (1 - Brier) and sample count.
type RegimeStat struct {
	Regime     string
	Accuracy   float64
	SampleSize int
}

// AnalyzeByRegime partitions resolved signals into volatility regimes by the
// rolling standard deviation of the signal series and reports per-regime
// accuracy. Empty regimes are still reported with zero samples.
func (a *Adapter) AnalyzeByRegime(
	ctx context.Context,
	signalType domain.SignalType,
	window domain.TimeWindow,
) ([]RegimeStat, error) {
	signals, err := a.resolvedSignals(ctx, signalType, window)
	if err != nil {
		return nil, err
	}

	sqErr := make(map[string]float64, len(regimeOrder))
	count := make(map[string]int, len(regimeOrder))
	for i, s := range signals {
		regime := classifyRegime(signals, i)
		realized := 0.0
		if *s.Outcome {
			realized = 1
		}
		diff := s.Value - realized
		sqErr[regime] += diff * diff
		count[regime]++
	}

	stats := make([]RegimeStat, 0, len(regimeOrder))
	for _, regime := range regimeOrder {
		stat := RegimeStat{Regime: regime, SampleSize: count[regime]}
		if stat.SampleSize > 0 {
			stat.Accuracy = 1 - sqErr[regime]/float64(stat.SampleSize)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// classifyRegime assigns signal i to a volatility regime by the standard
// deviation of the trailing regimeWindow values (including i). Early points
// with no history default to the low-volatility bucket.
func classifyRegime(signals []domain.ComputedSignal, i int) string {
	start := i - regimeWindow + 1
	if start < 0 {
		start = 0
	}
	window := signals[start : i+1]
	if len(window) < 2 {
		return RegimeLowVol
	}

	var sum float64
	for _, s := range window {
		sum += s.Value
	}
	mean := sum / float64(len(window))

	var variance float64
	for _, s := range window {
		d := s.Value - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(len(window)))

	switch {
	case sd < lowVolThreshold:
		return RegimeLowVol
	case sd < highVolThreshold:
		return RegimeMidVol
	default:
		return RegimeHighVol
	}
}
