// Package kalshi implements the Kalshi venue collaborator on top of the
// public trade API. Market data endpoints need no authentication.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/platform/venuescore"
)

// typeSeries routes each market type to Kalshi series ticker prefixes.
var typeSeries = map[domain.MarketType][]string{
	domain.MarketTypeRatePolicy:   {"KXFED", "KXFEDDECISION"},
	domain.MarketTypeMacroRelease: {"KXCPI", "KXPAYROLLS", "KXGDP"},
	domain.MarketTypeRecession:    {"KXRECSSNBER"},
	domain.MarketTypeGeopolitical: {"KXCEASEFIRE"},
	domain.MarketTypeRegulatory:   {"KXSECX"},
	domain.MarketTypeElection:     {"KXPRES"},
}

// Client is the Kalshi venue collaborator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Kalshi client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Venue identifies this collaborator.
func (c *Client) Venue() domain.Venue { return domain.VenueKalshi }

// FetchMarkets fetches open markets for the given market types by series.
func (c *Client) FetchMarkets(ctx context.Context, marketTypes []domain.MarketType) ([]domain.MarketRecord, error) {
	now := time.Now().UTC()
	seen := make(map[string]bool)
	var records []domain.MarketRecord

	for _, mt := range marketTypes {
		for _, series := range typeSeries[mt] {
			markets, err := c.getMarkets(ctx, series)
			if err != nil {
				return nil, fmt.Errorf("kalshi: fetch %s markets: %w", mt, err)
			}
			for _, m := range markets {
				if m.Status != "open" || seen[m.Ticker] {
					continue
				}
				seen[m.Ticker] = true
				rec := m.toRecord(mt, now)
				if err := rec.Validate(); err != nil {
					continue
				}
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

// CalculateScores derives Kalshi's own view of the directional indicators
// from its records. Pure.
func (c *Client) CalculateScores(records []domain.MarketRecord) domain.VenueSignals {
	return venuescore.Score(records)
}

func (c *Client) getMarkets(ctx context.Context, seriesTicker string) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("series_ticker", seriesTicker)
	params.Set("status", "open")
	params.Set("limit", "100")

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return resp.Markets, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}
