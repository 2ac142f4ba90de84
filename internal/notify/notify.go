// Package notify sends best-effort notifications about scans and matches.
package notify

import (
	"context"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/publishers"
)

// Dispatcher delivers an event to every configured sink.
type Dispatcher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Notifier bounds every send by a timeout. Failures are logged and
// reported as false; they never reach the caller as errors.
type Notifier struct {
	dispatcher Dispatcher
	timeout    time.Duration
	log        logger.Logger
}

// New builds a notifier. A nil dispatcher makes every call a logged no-op.
func New(d Dispatcher, timeout time.Duration, log logger.Logger) *Notifier {
	return &Notifier{dispatcher: d, timeout: timeout, log: logger.Ensure(log)}
}

// NotifyStart announces that a task began scanning.
func (n *Notifier) NotifyStart(ctx context.Context, taskName string) bool {
	return n.send(ctx, publishers.NewTaskStartedEvent(taskName))
}

// NotifyMatch announces a confirmed listing.
func (n *Notifier) NotifyMatch(ctx context.Context, itemName, price, url string) bool {
	return n.send(ctx, publishers.NewMatchEvent(itemName, price, url))
}

func (n *Notifier) send(ctx context.Context, evt publishers.Event) bool {
	if n == nil || n.dispatcher == nil {
		return false
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	delivered, err := n.dispatcher.Publish(ctx, evt)
	if err != nil {
		n.log.WarnObj("notification failed", "notify_error", map[string]any{
			"kind":      evt.Kind,
			"event_id":  evt.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return false
	}
	if delivered == 0 {
		n.log.DebugObj("no notification sinks configured", "notify_skip", map[string]any{
			"kind": evt.Kind,
		})
		return false
	}
	n.log.InfoObj("notification sent", "notify", map[string]any{
		"kind":      evt.Kind,
		"event_id":  evt.ID,
		"delivered": delivered,
	})
	return true
}
