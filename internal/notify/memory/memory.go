// Package memory provides an in-memory notification dispatcher, used in
// tests and as the fallback when no delivery channel is configured.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"spendtrack/internal/notify"
)

type Message struct {
	Recipient string
	Subject   string
	Body      string
}

type Dispatcher struct {
	mu   sync.Mutex
	sent []Message
}

var _ notify.Dispatcher = (*Dispatcher)(nil)

func New() *Dispatcher {
	return &Dispatcher{}
}

// Send records the notification and logs it instead of delivering.
func (d *Dispatcher) Send(ctx context.Context, recipient, subject, body string) error {
	d.mu.Lock()
	d.sent = append(d.sent, Message{Recipient: recipient, Subject: subject, Body: body})
	d.mu.Unlock()

	slog.InfoContext(ctx, "Notification recorded (memory dispatcher)",
		"recipient", recipient,
		"subject", subject)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (d *Dispatcher) Sent() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.sent...)
}
