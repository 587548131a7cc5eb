package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/polypredict/dashd/internal/domain"
)

// Event types emitted for terminal action outcomes.
const (
	EventActionSucceeded = "action_succeeded"
	EventActionFailed    = "action_failed"
	EventMarketResolved  = "market_resolved"
)

// ActionReporter adapts the Notifier to the dispatcher's outcome callback,
// turning terminal action results into operator notifications.
type ActionReporter struct {
	n *Notifier
}

// NewActionReporter wraps a Notifier.
func NewActionReporter(n *Notifier) *ActionReporter {
	return &ActionReporter{n: n}
}

// ActionFinished formats and forwards a terminal action result. Delivery
// failures are logged by the Notifier and never propagate to the dispatcher.
func (r *ActionReporter) ActionFinished(ctx context.Context, res domain.ActionResult) {
	label := strings.ReplaceAll(string(res.Kind), "_", " ")

	var event, title, message string
	switch {
	case res.State == domain.ActionStateFailed:
		event = EventActionFailed
		title = fmt.Sprintf("%s failed", label)
		message = res.Error
		if res.TxHash != "" {
			message = fmt.Sprintf("%s (tx %s)", res.Error, res.TxHash)
		}
	case res.Kind == domain.ActionResolveMarket:
		event = EventMarketResolved
		title = "market resolved"
		message = fmt.Sprintf("tx %s", res.TxHash)
	default:
		event = EventActionSucceeded
		title = fmt.Sprintf("%s confirmed", label)
		message = fmt.Sprintf("tx %s", res.TxHash)
	}

	_ = r.n.Notify(ctx, event, title, message)
}
