// Package notify delivers classified alerts to operator channels. Alerts are
// dispatched to all registered senders (Telegram, Discord) and can be
// filtered by alert kind so operators receive only the classes they care
// about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fedlens/fedlens/internal/domain"
)

// Sender is the interface each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches alerts to one or more Senders, filtered by alert kind.
type Notifier struct {
	senders []Sender
	kinds   map[domain.AlertKind]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to the given senders. Only
// alerts whose kind appears in kinds are forwarded; an empty kinds slice
// allows everything.
func NewNotifier(senders []Sender, kinds []domain.AlertKind, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.AlertKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return &Notifier{
		senders: senders,
		kinds:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyAlert formats and dispatches one classified alert, applying the kind
// filter.
func (n *Notifier) NotifyAlert(ctx context.Context, alert domain.Alert) error {
	if len(n.kinds) > 0 && !n.kinds[alert.Kind] {
		n.logger.DebugContext(ctx, "alert kind filtered out",
			slog.String("kind", string(alert.Kind)),
		)
		return nil
	}

	title, message := formatAlert(alert)
	return n.dispatch(ctx, title, message)
}

// Notify sends an arbitrary notification to all senders, bypassing the kind
// filter. Used for operational messages such as startup and run summaries.
func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender, collecting failures into one combined
// error so a single bad channel does not block the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatAlert renders an alert as a short title and body for chat channels.
func formatAlert(alert domain.Alert) (title, message string) {
	switch alert.Kind {
	case domain.AlertOpportunity:
		title = "Cross-venue opportunity"
	case domain.AlertDataQuality:
		title = "Data quality issue"
	case domain.AlertResolutionRisk:
		title = "Resolution risk"
	default:
		title = string(alert.Kind)
	}

	message = fmt.Sprintf(
		"%s\nDivergence: %.1f%% (%s high / %s low)\nSimilarity: %.2f\n%s vs %s",
		alert.Description,
		alert.Divergence*100,
		alert.HighVenue, alert.LowVenue,
		alert.Pair.Similarity,
		alert.Pair.A.Ticker, alert.Pair.B.Ticker,
	)
	return title, message
}
