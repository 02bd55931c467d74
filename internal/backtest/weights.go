package backtest

import (
	"context"
	"math"

	"github.com/fedlens/fedlens/internal/domain"
)

// SignalWeight is one signal's share of an optimal blend.
type SignalWeight struct {
	SignalType domain.SignalType
	Weight     float64
	BrierScore float64
	SampleSize int
}

// ComputeOptimalWeights scores each requested signal over the window and
// assigns weights proportional to (1 - brier) * ln(sampleSize + 1),
// normalized to sum to 1. When every score is zero (all signals worthless or
// unsampled) it falls back to equal weights.
func (a *Adapter) ComputeOptimalWeights(
	ctx context.Context,
	signalTypes []domain.SignalType,
	window domain.TimeWindow,
) ([]SignalWeight, error) {
	if len(signalTypes) == 0 {
		return nil, nil
	}

	weights := make([]SignalWeight, 0, len(signalTypes))
	scores := make([]float64, 0, len(signalTypes))
	var total float64
	for _, st := range signalTypes {
		report, err := a.ComputeSignalAccuracy(ctx, st, 0.5, window)
		if err != nil {
			return nil, err
		}
		score := 0.0
		if report.SampleSize > 0 {
			score = (1 - report.BrierScore) * math.Log(float64(report.SampleSize)+1)
		}
		if score < 0 {
			score = 0
		}
		scores = append(scores, score)
		total += score
		weights = append(weights, SignalWeight{
			SignalType: st,
			BrierScore: report.BrierScore,
			SampleSize: report.SampleSize,
		})
	}

	if total == 0 {
		equal := 1 / float64(len(signalTypes))
		for i := range weights {
			weights[i].Weight = equal
		}
		return weights, nil
	}

	for i := range weights {
		weights[i].Weight = scores[i] / total
	}
	return weights, nil
}
