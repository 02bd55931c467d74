package kalshi

import (
	"time"

	"github.com/fedlens/fedlens/internal/domain"
)

// APIMarket represents a market as returned by the Kalshi REST API.
// Prices are in cents (1-99).
type APIMarket struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	Status         string  `json:"status"` // "open", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	LastPrice      float64 `json:"last_price"`
	Volume24H      int64   `json:"volume_24h"`
	OpenInterest   int64   `json:"open_interest"`
	Liquidity      int64   `json:"liquidity"`
	Category       string  `json:"category"`
	Result         string  `json:"result"` // "yes", "no", "" (unsettled)
	OpenTime       string  `json:"open_time"`
	CloseTime      string  `json:"close_time"`
	ExpirationTime string  `json:"expiration_time"`
}

// marketsResponse is the paginated envelope around a market list.
type marketsResponse struct {
	Markets []APIMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// toRecord shapes an API market into the common record representation.
// Kalshi markets are binary; the yes probability is the mid of the yes
// bid/ask when both are quoted, otherwise the last trade price.
func (m APIMarket) toRecord(marketType domain.MarketType, now time.Time) domain.MarketRecord {
	yes := normalizeProb(m.LastPrice)
	if m.YesBid > 0 && m.YesAsk > 0 {
		yes = normalizeProb((m.YesBid + m.YesAsk) / 2)
	}

	var closeTime time.Time
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		closeTime = t
	} else if t, err := time.Parse(time.RFC3339, m.ExpirationTime); err == nil {
		closeTime = t
	}

	return domain.MarketRecord{
		EventID:    "kalshi:" + m.Ticker,
		Venue:      domain.VenueKalshi,
		MarketType: marketType,
		Ticker:     m.Ticker,
		Question:   m.Title,
		Outcomes: []domain.Outcome{
			{Label: "Yes", Probability: yes, Price: yes},
			{Label: "No", Probability: 1 - yes, Price: 1 - yes},
		},
		CloseTime:      closeTime,
		AsOf:           now,
		LastUpdated:    now,
		LiquidityScore: liquidityScore(m.Liquidity),
		Volume24h:      float64(m.Volume24H),
		OpenInterest:   float64(m.OpenInterest),
	}
}

// normalizeProb converts Kalshi cent prices (0..100) to probabilities.
func normalizeProb(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v > 1.0 {
		v = v / 100.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// liquidityScore squashes raw cent liquidity into [0,1]. $50k (5M cents) or
// more counts as fully liquid.
func liquidityScore(liquidity int64) float64 {
	const fullLiquidity = 5_000_000
	if liquidity <= 0 {
		return 0
	}
	score := float64(liquidity) / fullLiquidity
	if score > 1 {
		return 1
	}
	return score
}
