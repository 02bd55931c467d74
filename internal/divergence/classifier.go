// Package divergence classifies matched pairs into actionable or diagnostic
// alerts. Classification is pure: given the same pairs and config it always
// produces the same alerts in the same order.
package divergence

import (
	"fmt"
	"sort"

	"github.com/fedlens/fedlens/internal/domain"
)

// Config holds the liquidity gate and divergence thresholds.
type Config struct {
	// MinLiquidity must be met by both sides of a pair; a missing liquidity
	// score counts as 0 and fails the gate.
	MinLiquidity float64
	// MinDivergence is the floor below which a pair produces no alert.
	MinDivergence float64
	// MaxDivergence is the ceiling above which a gap is treated as a data
	// quality problem rather than a tradeable edge.
	MaxDivergence float64
}

// DefaultConfig returns the standard gates.
func DefaultConfig() Config {
	return Config{
		MinLiquidity:  0.3,
		MinDivergence: 0.05,
		MaxDivergence: 0.20,
	}
}

// minActionableSimilarity separates opportunities from resolution risk: below
// it the two markets probably do not resolve on identical criteria, so the
// gap may be structural rather than an edge.
const minActionableSimilarity = 0.8

// Analyze classifies each pair and returns the alerts sorted by divergence
// descending. Pairs failing the liquidity gate, below the divergence floor,
// or lacking a "yes" outcome on either side are skipped, never errors.
func Analyze(pairs []domain.MatchedPair, cfg Config) []domain.Alert {
	var alerts []domain.Alert
	for _, pair := range pairs {
		if pair.A.LiquidityScore < cfg.MinLiquidity || pair.B.LiquidityScore < cfg.MinLiquidity {
			continue
		}
		if pair.Divergence < cfg.MinDivergence {
			continue
		}

		yesA, okA := pair.A.YesProbability()
		yesB, okB := pair.B.YesProbability()
		if !okA || !okB {
			// Cannot attribute a high/low side without a yes outcome.
			continue
		}

		high, low := pair.A.Venue, pair.B.Venue
		if yesB > yesA {
			high, low = pair.B.Venue, pair.A.Venue
		}

		var kind domain.AlertKind
		var desc string
		switch {
		case pair.Divergence >= cfg.MaxDivergence:
			kind = domain.AlertDataQuality
			desc = fmt.Sprintf("divergence %.3f exceeds %.2f; likely stale or bad data on %s or %s",
				pair.Divergence, cfg.MaxDivergence, high, low)
		case pair.Similarity < minActionableSimilarity:
			kind = domain.AlertResolutionRisk
			desc = fmt.Sprintf("similarity %.3f below %.2f; markets may resolve on different criteria",
				pair.Similarity, minActionableSimilarity)
		default:
			kind = domain.AlertOpportunity
			desc = fmt.Sprintf("%s prices yes at %.3f vs %s at %.3f (gap %.3f)",
				high, maxf(yesA, yesB), low, minf(yesA, yesB), pair.Divergence)
		}

		alerts = append(alerts, domain.Alert{
			Kind:        kind,
			Pair:        pair,
			Divergence:  pair.Divergence,
			HighVenue:   high,
			LowVenue:    low,
			Description: desc,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Divergence > alerts[j].Divergence
	})
	return alerts
}

// Summarize reduces a batch of alerts to counts and divergence statistics.
// An empty batch yields zeros, never NaN.
func Summarize(alerts []domain.Alert) domain.AlertSummary {
	summary := domain.AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Kind {
		case domain.AlertOpportunity:
			summary.Opportunities++
		case domain.AlertDataQuality:
			summary.DataQualityIssues++
		case domain.AlertResolutionRisk:
			summary.ResolutionRisks++
		}
		summary.AvgDivergence += a.Divergence
		if a.Divergence > summary.MaxDivergence {
			summary.MaxDivergence = a.Divergence
		}
	}
	if summary.Total > 0 {
		summary.AvgDivergence /= float64(summary.Total)
	}
	return summary
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
