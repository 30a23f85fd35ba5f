// Package worker contains the background processors driven by AMQP messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/notify"
)

// NotifyWorker delivers budget alert messages consumed from the queue through
// the configured dispatcher.
type NotifyWorker struct {
	dispatcher notify.Dispatcher
}

func NewNotifyWorker(dispatcher notify.Dispatcher) *NotifyWorker {
	return &NotifyWorker{dispatcher: dispatcher}
}

// HandleAlertMessage processes a single budget alert message. A delivery
// failure is returned so the consumer nacks and requeues the message.
func (w *NotifyWorker) HandleAlertMessage(ctx context.Context, msg *amqp.AlertMessage) error {
	slog.InfoContext(ctx, "Processing alert message",
		"recipient", msg.Recipient,
		"level", msg.Level)

	if msg.Recipient == "" {
		// Undeliverable without a recipient; dropping is the only option.
		slog.WarnContext(ctx, "Alert message without recipient, dropping", "level", msg.Level)
		return nil
	}

	if err := w.dispatcher.Send(ctx, msg.Recipient, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("deliver alert to %s: %w", msg.Recipient, err)
	}

	slog.InfoContext(ctx, "Alert delivered",
		"recipient", msg.Recipient,
		"level", msg.Level)
	return nil
}
