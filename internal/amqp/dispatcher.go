package amqp

import (
	"context"
	"fmt"
)

// Dispatcher adapts the AMQP client to the notify.Dispatcher port: instead of
// delivering the notification inline, it publishes the alert for the notify
// worker to pick up.
type Dispatcher struct {
	client *Client
}

func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Send(ctx context.Context, recipient, subject, body string) error {
	if d.client == nil {
		return fmt.Errorf("amqp client not configured")
	}
	return d.client.PublishAlert(ctx, NewAlertMessage(recipient, subject, body, ""))
}
