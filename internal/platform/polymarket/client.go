// Package polymarket implements the Polymarket venue collaborator on top of
// the Gamma REST API.
package polymarket

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

// typeKeywords routes each market type to a Gamma text search. The Gamma API
// has no native macro taxonomy, so discovery is keyword-driven.
var typeKeywords = map[domain.MarketType][]string{
	domain.MarketTypeRatePolicy:   {"fed rate", "rate cut", "rate hike", "fomc"},
	domain.MarketTypeMacroRelease: {"cpi", "inflation", "payroll", "gdp"},
	domain.MarketTypeRecession:    {"recession"},
	domain.MarketTypeGeopolitical: {"ceasefire", "sanctions"},
	domain.MarketTypeRegulatory:   {"sec", "regulation"},
	domain.MarketTypeElection:     {"election", "president"},
}

// Client is the Polymarket venue collaborator. It fetches markets from the
// Gamma API and shapes them into the common record representation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Polymarket client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Venue identifies this collaborator.
func (c *Client) Venue() domain.Venue { return domain.VenuePolymarket }

// FetchMarkets fetches open markets for the given market types. Markets that
// fail validation are dropped individually; an HTTP or decode failure fails
// the whole call and is isolated by the orchestrator.
func (c *Client) FetchMarkets(ctx context.Context, marketTypes []domain.MarketType) ([]domain.MarketRecord, error) {
	now := time.Now().UTC()
	seen := make(map[string]bool)
	var records []domain.MarketRecord

	for _, mt := range marketTypes {
		for _, kw := range typeKeywords[mt] {
			markets, err := c.searchMarkets(ctx, kw)
			if err != nil {
				return nil, fmt.Errorf("polymarket: fetch %s markets: %w", mt, err)
			}
			for _, m := range markets {
				if bool(m.Closed) || !bool(m.Active) || seen[m.ID] {
					continue
				}
				seen[m.ID] = true
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

// CalculateScores derives Polymarket's own view of the directional
// indicators from its records. Pure; a missing indicator is simply absent
// from the returned map.
func (c *Client) CalculateScores(records []domain.MarketRecord) domain.VenueSignals {
	return venuescore.Score(records)
}

func (c *Client) searchMarkets(ctx context.Context, query string) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("closed", "false")
	params.Set("limit", "50")

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return markets, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}
