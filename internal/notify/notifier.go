// Package notify delivers operator alerts over one or more channels
// (Telegram, Discord), filtered by event type.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// Event types the trading loop emits.
const (
	EventOrderMatched = "order_matched"
	EventOrderPending = "order_pending"
	EventError        = "error"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the sender, e.g. "telegram".
	Name() string
}

// Notifier dispatches notifications to every registered sender. It holds an
// allowed-event set; Notify drops events outside it. An empty set allows
// everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders, forwarding
// only the listed event types (all, when events is empty).
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends to all senders when the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// OrderMatched reports a settled order.
func (n *Notifier) OrderMatched(ctx context.Context, snap domain.OrderSnapshot) error {
	return n.Notify(ctx, EventOrderMatched,
		"Order matched",
		fmt.Sprintf("%s %s @ %s, size %s", snap.Side, snap.AssetID, snap.Price, snap.SizeMatched),
	)
}

// OrderPending reports an order resting on the book.
func (n *Notifier) OrderPending(ctx context.Context, snap domain.OrderSnapshot) error {
	return n.Notify(ctx, EventOrderPending,
		"Order pending",
		fmt.Sprintf("%s %s @ %s, status %s", snap.Side, snap.AssetID, snap.Price, snap.Status),
	)
}

// Failure reports a structured error with its machine-readable code.
func (n *Notifier) Failure(ctx context.Context, err error) error {
	return n.Notify(ctx, EventError,
		fmt.Sprintf("Error: %s", domain.CodeOf(err)),
		err.Error(),
	)
}

// dispatch fans the message out. A failing sender never blocks the others;
// failures are combined into one error.
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
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
