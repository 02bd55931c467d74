package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedlens/fedlens/internal/aggregate"
	"github.com/fedlens/fedlens/internal/domain"
	"github.com/fedlens/fedlens/internal/platform/venuescore"
)

type fakeClient struct {
	venue   domain.Venue
	records []domain.MarketRecord
}

func (f *fakeClient) Venue() domain.Venue { return f.venue }

func (f *fakeClient) FetchMarkets(ctx context.Context, marketTypes []domain.MarketType) ([]domain.MarketRecord, error) {
	return f.records, nil
}

func (f *fakeClient) CalculateScores(records []domain.MarketRecord) domain.VenueSignals {
	return venuescore.Score(records)
}

type memSnapshotStore struct {
	snaps []domain.MarketSnapshot
}

func (m *memSnapshotStore) InsertBatch(ctx context.Context, snaps []domain.MarketSnapshot) error {
	m.snaps = append(m.snaps, snaps...)
	return nil
}

func (m *memSnapshotStore) Find(ctx context.Context, f domain.SnapshotFilter) ([]domain.MarketSnapshot, error) {
	return m.snaps, nil
}

func (m *memSnapshotStore) GetByTicker(ctx context.Context, ticker string, from, to time.Time) ([]domain.MarketSnapshot, error) {
	return nil, nil
}

// memSignalStore mirrors the persistent store's upsert: a second insert of the
// same ID replaces the stored outcome.
type memSignalStore struct {
	byID  map[string]domain.ComputedSignal
	order []string
}

func (m *memSignalStore) InsertBatch(ctx context.Context, signals []domain.ComputedSignal) error {
	if m.byID == nil {
		m.byID = make(map[string]domain.ComputedSignal)
	}
	for _, s := range signals {
		if _, seen := m.byID[s.ID]; !seen {
			m.order = append(m.order, s.ID)
		}
		m.byID[s.ID] = s
	}
	return nil
}

func (m *memSignalStore) Find(ctx context.Context, f domain.SignalFilter) ([]domain.ComputedSignal, error) {
	var out []domain.ComputedSignal
	for _, id := range m.order {
		s := m.byID[id]
		if len(f.Types) > 0 {
			found := false
			for _, t := range f.Types {
				if t == s.Type {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if !f.From.IsZero() && s.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && s.Timestamp.After(f.To) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type memResolutionStore struct {
	byTicker map[string]domain.Resolution
}

func (m *memResolutionStore) Get(ctx context.Context, ticker string) (domain.Resolution, error) {
	res, ok := m.byTicker[ticker]
	if !ok {
		return domain.Resolution{}, domain.ErrNotFound
	}
	return res, nil
}

func (m *memResolutionStore) Upsert(ctx context.Context, res domain.Resolution) error {
	if m.byTicker == nil {
		m.byTicker = make(map[string]domain.Resolution)
	}
	m.byTicker[res.Ticker] = res
	return nil
}

type memAlertBus struct {
	published []domain.Alert
}

func (m *memAlertBus) Publish(ctx context.Context, alert domain.Alert) error {
	m.published = append(m.published, alert)
	return nil
}

func record(venue domain.Venue, ticker, question string, yes float64) domain.MarketRecord {
	return domain.MarketRecord{
		EventID:    string(venue) + ":" + ticker,
		Venue:      venue,
		MarketType: domain.MarketTypeRatePolicy,
		Ticker:     ticker,
		Question:   question,
		Outcomes: []domain.Outcome{
			{Label: "Yes", Probability: yes},
			{Label: "No", Probability: 1 - yes},
		},
		CloseTime:      time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC),
		LiquidityScore: 0.8,
	}
}

func newTestService(snaps *memSnapshotStore, sigs *memSignalStore, res *memResolutionStore, bus *memAlertBus) *AggregationService {
	logger := slog.New(slog.DiscardHandler)
	clients := []domain.VenueClient{
		&fakeClient{
			venue: domain.VenuePolymarket,
			records: []domain.MarketRecord{
				record(domain.VenuePolymarket, "PM-CUT", "Will the Fed cut rates in December?", 0.62),
			},
		},
		&fakeClient{
			venue: domain.VenueKalshi,
			records: []domain.MarketRecord{
				record(domain.VenueKalshi, "KX-CUT", "Will the Fed cut rates in December?", 0.52),
			},
		},
	}
	orch := aggregate.NewOrchestrator(clients, nil, nil, aggregate.DefaultConfig(), logger)

	var snapStore domain.SnapshotStore
	if snaps != nil {
		snapStore = snaps
	}
	var sigStore domain.SignalStore
	if sigs != nil {
		sigStore = sigs
	}
	var resStore domain.ResolutionStore
	if res != nil {
		resStore = res
	}
	var alertBus domain.AlertBus
	if bus != nil {
		alertBus = bus
	}
	return NewAggregationService(orch, []domain.MarketType{domain.MarketTypeRatePolicy},
		snapStore, sigStore, resStore, alertBus, nil, nil, logger)
}

func TestRunOncePublishesLatestResult(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)

	_, _, ok := svc.Latest()
	require.False(t, ok)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	latest, at, ok := svc.Latest()
	require.True(t, ok)
	require.Same(t, result, latest)
	require.False(t, at.IsZero())
}

func TestRunOncePersistsSnapshotsAndSignals(t *testing.T) {
	snaps := &memSnapshotStore{}
	sigs := &memSignalStore{}
	svc := newTestService(snaps, sigs, nil, nil)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, snaps.snaps, 2)
	for _, s := range snaps.snaps {
		require.NotEmpty(t, s.ID)
		require.NotEmpty(t, s.Ticker)
	}

	all, err := sigs.Find(context.Background(), domain.SignalFilter{})
	require.NoError(t, err)

	var blended, perMarket int
	for _, s := range all {
		if s.Ticker == "" {
			blended++
		} else {
			perMarket++
		}
	}
	// One blended easing row plus one per-market row per venue.
	require.Equal(t, 1, blended)
	require.Equal(t, 2, perMarket)
}

func TestRunOnceBackfillsResolvedOutcomes(t *testing.T) {
	sigs := &memSignalStore{}
	res := &memResolutionStore{byTicker: map[string]domain.Resolution{
		"PM-CUT": {Ticker: "PM-CUT", ResolvedAt: time.Now(), ActualOutcome: "yes"},
		"KX-CUT": {Ticker: "KX-CUT", ResolvedAt: time.Now(), ActualOutcome: "no"},
	}}
	svc := newTestService(nil, sigs, res, nil)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	all, err := sigs.Find(context.Background(), domain.SignalFilter{})
	require.NoError(t, err)
	for _, s := range all {
		switch s.Ticker {
		case "PM-CUT":
			require.NotNil(t, s.Outcome)
			require.True(t, *s.Outcome)
		case "KX-CUT":
			require.NotNil(t, s.Outcome)
			require.False(t, *s.Outcome)
		default:
			// Blended rows have no underlying market and stay unscored.
			require.Nil(t, s.Outcome)
		}
	}
}

func TestRunOnceLeavesUnresolvedSignalsUnscored(t *testing.T) {
	sigs := &memSignalStore{}
	res := &memResolutionStore{}
	svc := newTestService(nil, sigs, res, nil)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	all, err := sigs.Find(context.Background(), domain.SignalFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for _, s := range all {
		require.Nil(t, s.Outcome)
	}
}

func TestRunOncePublishesAlertsToBus(t *testing.T) {
	bus := &memAlertBus{}
	svc := newTestService(nil, nil, nil, bus)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, bus.published, len(result.Alerts))
	require.NotEmpty(t, bus.published)
}
