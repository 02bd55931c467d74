package backtest

import (
	"context"
	"math"

	"github.com/fedlens/fedlens/internal/domain"
)

// defaultCalibrationBins is the number of equal-width probability buckets
// used for the calibration score.
const defaultCalibrationBins = 10

// ThresholdStat is the accuracy and sample count at one threshold step.
type ThresholdStat struct {
	Threshold float64
	Accuracy  float64
	Samples   int
}

// AccuracyReport scores one signal type against realized outcomes over a
// window. A zero-sample window yields a well-formed all-zero report.
type AccuracyReport struct {
	SignalType          domain.SignalType
	Window              domain.TimeWindow
	SampleSize          int
	DirectionalAccuracy float64 // among signals >= threshold, fraction realized
	MeanAbsoluteError   float64
	BrierScore          float64 // 0 = perfect, 1 = worst
	Calibration         float64 // 1 = perfectly calibrated
	Thresholds          []ThresholdStat
}

// ComputeSignalAccuracy scores every resolved signal of the given type in
// the window. Signals without a ground-truth outcome are excluded from the
// sample.
func (a *Adapter) ComputeSignalAccuracy(
	ctx context.Context,
	signalType domain.SignalType,
	threshold float64,
	window domain.TimeWindow,
) (*AccuracyReport, error) {
	signals, err := a.resolvedSignals(ctx, signalType, window)
	if err != nil {
		return nil, err
	}

	report := &AccuracyReport{
		SignalType: signalType,
		Window:     window,
		SampleSize: len(signals),
		Thresholds: make([]ThresholdStat, 0, 9),
	}
	for step := 1; step <= 9; step++ {
		report.Thresholds = append(report.Thresholds, ThresholdStat{
			Threshold: float64(step) / 10,
		})
	}
	if len(signals) == 0 {
		return report, nil
	}

	preds := make([]float64, len(signals))
	realized := make([]float64, len(signals))
	for i, s := range signals {
		preds[i] = s.Value
		if *s.Outcome {
			realized[i] = 1
		}
	}

	var absErr, sqErr float64
	var aboveThreshold, aboveHits int
	for i := range preds {
		diff := preds[i] - realized[i]
		absErr += math.Abs(diff)
		sqErr += diff * diff
		if preds[i] >= threshold {
			aboveThreshold++
			if realized[i] == 1 {
				aboveHits++
			}
		}
	}
	report.MeanAbsoluteError = absErr / float64(len(preds))
	report.BrierScore = sqErr / float64(len(preds))
	if aboveThreshold > 0 {
		report.DirectionalAccuracy = float64(aboveHits) / float64(aboveThreshold)
	}
	report.Calibration = calibrationScore(preds, realized, defaultCalibrationBins)

	for i := range report.Thresholds {
		var n, hits int
		for j := range preds {
			if preds[j] >= report.Thresholds[i].Threshold {
				n++
				if realized[j] == 1 {
					hits++
				}
			}
		}
		report.Thresholds[i].Samples = n
		if n > 0 {
			report.Thresholds[i].Accuracy = float64(hits) / float64(n)
		}
	}

	return report, nil
}

// calibrationScore bins predictions into numBins equal-width probability
// buckets and computes the sample-weighted mean absolute gap between each
// bucket's average predicted probability and its realized frequency. It
// reports 1 - gap so 1 means perfectly calibrated. Empty buckets contribute
// no weight.
func calibrationScore(preds, realized []float64, numBins int) float64 {
	if len(preds) == 0 || numBins <= 0 {
		return 0
	}

	binPred := make([]float64, numBins)
	binReal := make([]float64, numBins)
	binCount := make([]int, numBins)
	for i := range preds {
		bin := int(preds[i] * float64(numBins))
		if bin >= numBins {
			bin = numBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		binPred[bin] += preds[i]
		binReal[bin] += realized[i]
		binCount[bin]++
	}

	var weightedGap float64
	for b := 0; b < numBins; b++ {
		if binCount[b] == 0 {
			continue
		}
		avgPred := binPred[b] / float64(binCount[b])
		avgReal := binReal[b] / float64(binCount[b])
		weightedGap += math.Abs(avgPred-avgReal) * float64(binCount[b]) / float64(len(preds))
	}
	return 1 - weightedGap
}
