// Package notify fans operator alerts out to chat webhooks. Alerts are
// filtered by event type and never block the snapshot path.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Event types.
const (
	EventConnectionLost     = "connection_lost"
	EventConnectionRestored = "connection_restored"
	EventTradeClosed        = "trade_closed"
	EventCommandFailed      = "command_failed"
	EventBackendError       = "backend_error"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier delivers to every sender. An empty event filter allows all events.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewNotifier creates a Notifier. events limits which event types Notify
// forwards.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify delivers synchronously when event passes the filter. Sender
// failures are joined; one failing sender does not stop the others.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", event),
		)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: %s: %w", event, err)
	}
	return nil
}

// Go delivers in the background with its own timeout. Use it from latency
// sensitive goroutines; Wait drains outstanding deliveries.
func (n *Notifier) Go(event, title, message string) {
	if !n.Enabled() {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*sendTimeout)
		defer cancel()
		_ = n.Notify(ctx, event, title, message)
	}()
}

// Wait blocks until every delivery started with Go has finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// Close waits for pending deliveries with a deadline.
func (n *Notifier) Close() error {
	done := make(chan struct{})
	go func() {
		n.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(2 * sendTimeout):
		return errors.New("notify: pending deliveries timed out")
	}
}
