package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// minCorrelationSamples is the smallest signal sample for which a
// correlation estimate is worth reporting. Below it the method fails with
// domain.ErrInsufficientData rather than returning a misleading number.
const minCorrelationSamples = 10

// lagGridHours is the fixed lag grid, capped by the caller's maxLagHours.
var lagGridHours = []int{0, 1, 2, 4, 8, 12, 24}

// LagCorrelation is the Pearson correlation between the signal series and
// the instrument series shifted by LagHours, with an approximate two-tailed
// significance value.
type LagCorrelation struct {
	LagHours    int
	Correlation float64
	PValue      float64
	Samples     int
}

// ComputeSignalCorrelation measures lead/lag correlation between a signal
// series and an external instrument price series at each grid lag, sorted by
// absolute correlation descending. Signals do not need a resolution here;
// correlation is against prices, not outcomes.
func (a *Adapter) ComputeSignalCorrelation(
	ctx context.Context,
	signalType domain.SignalType,
	instrument string,
	window domain.TimeWindow,
	maxLagHours int,
) ([]LagCorrelation, error) {
	if a.signals == nil || a.prices == nil {
		return nil, fmt.Errorf("backtest: correlation: %w", domain.ErrStorageNotConfigured)
	}

	signals, err := a.signals.Find(ctx, domain.SignalFilter{
		Types: []domain.SignalType{signalType},
		From:  window.Start,
		To:    window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("backtest: find signals: %w", err)
	}
	if len(signals) < minCorrelationSamples {
		return nil, fmt.Errorf("backtest: correlation for %s: %d samples, need %d: %w",
			signalType, len(signals), minCorrelationSamples, domain.ErrInsufficientData)
	}

	// Fetch prices wide enough to cover the largest lag shift.
	maxShift := time.Duration(maxLagHours) * time.Hour
	prices, err := a.prices.GetPrices(ctx, instrument, window.Start, window.End.Add(maxShift))
	if err != nil {
		return nil, fmt.Errorf("backtest: prices for %s: %w", instrument, err)
	}

	signalByHour := bucketSignals(signals)
	priceByHour := bucketPrices(prices)

	var results []LagCorrelation
	for _, lag := range lagGridHours {
		if lag > maxLagHours {
			break
		}
		var xs, ys []float64
		for hour, val := range signalByHour {
			if price, ok := priceByHour[hour+int64(lag)]; ok {
				xs = append(xs, val)
				ys = append(ys, price)
			}
		}
		if len(xs) < 3 {
			continue
		}
		// Map iteration order is random; pair order does not affect Pearson,
		// but keep the sample count stable for reporting.
		r := pearson(xs, ys)
		results = append(results, LagCorrelation{
			LagHours:    lag,
			Correlation: r,
			PValue:      twoTailedP(r, len(xs)),
			Samples:     len(xs),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return math.Abs(results[i].Correlation) > math.Abs(results[j].Correlation)
	})
	return results, nil
}

// bucketSignals keeps the last signal value observed in each hour bucket.
func bucketSignals(signals []domain.ComputedSignal) map[int64]float64 {
	sorted := make([]domain.ComputedSignal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	out := make(map[int64]float64)
	for _, s := range sorted {
		out[s.Timestamp.Unix()/3600] = s.Value
	}
	return out
}

// bucketPrices keeps the last price observed in each hour bucket.
func bucketPrices(prices []domain.PricePoint) map[int64]float64 {
	sorted := make([]domain.PricePoint, len(prices))
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	out := make(map[int64]float64)
	for _, p := range sorted {
		out[p.Timestamp.Unix()/3600] = p.Price
	}
	return out
}

// pearson computes the Pearson correlation coefficient of two equal-length
// series. Zero variance on either side yields 0.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// twoTailedP approximates the two-tailed significance of a Pearson
// correlation via the t-statistic and a normal tail approximation. Good
// enough for ranking lags; not a substitute for an exact t-distribution.
func twoTailedP(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(float64(n-2)/(1-r*r))
	return math.Erfc(t / math.Sqrt2)
}
