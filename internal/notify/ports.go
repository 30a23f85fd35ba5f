// Package notify defines the outbound notification port and its adapters.
package notify

import "context"

// Dispatcher sends a notification to a user. Implementations must treat
// delivery failure as a recoverable, returnable error, never a panic.
type Dispatcher interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
