package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether flags are sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// stringList unmarshals Gamma fields that arrive either as a JSON array or as
// a JSON-encoded string containing an array (the API does both).
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	var nested []string
	if err := json.Unmarshal([]byte(s), &nested); err != nil {
		return err
	}
	*l = nested
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	Slug           string     `json:"slug"`
	Outcomes       stringList `json:"outcomes"`
	OutcomePrices  stringList `json:"outcomePrices"`
	EndDate        string     `json:"endDate"`
	Active         flexBool   `json:"active"`
	Closed         flexBool   `json:"closed"`
	Volume24hr     float64    `json:"volume24hr"`
	Liquidity      string     `json:"liquidity"`
	LiquidityNum   float64    `json:"liquidityNum"`
	OpenInterest   float64    `json:"openInterest"`
	UpdatedAt      string     `json:"updatedAt"`
}

// toRecord shapes an API market into the common record representation.
// Prices are already probabilities in [0,1] on Gamma.
func (m APIMarket) toRecord(marketType domain.MarketType, now time.Time) domain.MarketRecord {
	outcomes := make([]domain.Outcome, 0, len(m.Outcomes))
	for i, label := range m.Outcomes {
		var prob float64
		if i < len(m.OutcomePrices) {
			if p, err := strconv.ParseFloat(m.OutcomePrices[i], 64); err == nil {
				prob = clamp01(p)
			}
		}
		outcomes = append(outcomes, domain.Outcome{
			Label:       label,
			Probability: prob,
			Price:       prob,
		})
	}

	var closeTime time.Time
	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		closeTime = t
	}
	var updated time.Time
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		updated = t
	} else {
		updated = now
	}

	liquidity := m.LiquidityNum
	if liquidity == 0 {
		if l, err := strconv.ParseFloat(m.Liquidity, 64); err == nil {
			liquidity = l
		}
	}

	return domain.MarketRecord{
		EventID:        "polymarket:" + m.ID,
		Venue:          domain.VenuePolymarket,
		MarketType:     marketType,
		Ticker:         m.Slug,
		Question:       m.Question,
		Outcomes:       outcomes,
		CloseTime:      closeTime,
		AsOf:           now,
		LastUpdated:    updated,
		LiquidityScore: liquidityScore(liquidity),
		Volume24h:      m.Volume24hr,
		OpenInterest:   m.OpenInterest,
	}
}

// liquidityScore squashes raw dollar liquidity into [0,1]. $100k or more
// counts as fully liquid.
func liquidityScore(liquidity float64) float64 {
	const fullLiquidity = 100_000
	if liquidity <= 0 {
		return 0
	}
	return clamp01(liquidity / fullLiquidity)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
