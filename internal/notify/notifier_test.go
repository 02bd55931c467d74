package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedlens/fedlens/internal/domain"
)

type memSender struct {
	name   string
	err    error
	titles []string
	bodies []string
}

func (m *memSender) Send(ctx context.Context, title, message string) error {
	if m.err != nil {
		return m.err
	}
	m.titles = append(m.titles, title)
	m.bodies = append(m.bodies, message)
	return nil
}

func (m *memSender) Name() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleAlert(kind domain.AlertKind) domain.Alert {
	return domain.Alert{
		Kind:        kind,
		Divergence:  0.12,
		HighVenue:   domain.VenuePolymarket,
		LowVenue:    domain.VenueKalshi,
		Description: "Fed cut markets disagree",
		Pair: domain.MatchedPair{
			A:          domain.MarketRecord{Ticker: "PM-CUT"},
			B:          domain.MarketRecord{Ticker: "KX-CUT"},
			Similarity: 0.95,
		},
	}
}

func TestNotifyAlertDeliversToAllSenders(t *testing.T) {
	a := &memSender{name: "telegram"}
	b := &memSender{name: "discord"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	err := n.NotifyAlert(context.Background(), sampleAlert(domain.AlertOpportunity))
	require.NoError(t, err)

	require.Equal(t, []string{"Cross-venue opportunity"}, a.titles)
	require.Equal(t, []string{"Cross-venue opportunity"}, b.titles)
	require.True(t, strings.Contains(a.bodies[0], "12.0%"))
	require.True(t, strings.Contains(a.bodies[0], "PM-CUT"))
}

func TestNotifyAlertKindFilter(t *testing.T) {
	s := &memSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []domain.AlertKind{domain.AlertOpportunity}, testLogger())

	require.NoError(t, n.NotifyAlert(context.Background(), sampleAlert(domain.AlertResolutionRisk)))
	require.Empty(t, s.titles)

	require.NoError(t, n.NotifyAlert(context.Background(), sampleAlert(domain.AlertOpportunity)))
	require.Len(t, s.titles, 1)
}

func TestNotifyBypassesKindFilter(t *testing.T) {
	s := &memSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []domain.AlertKind{domain.AlertOpportunity}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "startup", "watch loop running"))
	require.Equal(t, []string{"startup"}, s.titles)
}

func TestDispatchCollectsSenderFailures(t *testing.T) {
	broken := &memSender{name: "telegram", err: errors.New("bad token")}
	healthy := &memSender{name: "discord"}
	n := NewNotifier([]Sender{broken, healthy}, nil, testLogger())

	err := n.NotifyAlert(context.Background(), sampleAlert(domain.AlertOpportunity))
	require.Error(t, err)
	require.Contains(t, err.Error(), "telegram")

	// The healthy channel still received the alert.
	require.Len(t, healthy.titles, 1)
}

func TestNotifierWithoutSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	require.NoError(t, n.NotifyAlert(context.Background(), sampleAlert(domain.AlertOpportunity)))
}
