// Package notify delivers trading events to an external messaging
// collaborator. Delivery is fire-and-forget: failures are logged and
// retried in the background and never touch the trading state machine.
package notify

// Notifier accepts a formatted message for asynchronous delivery.
type Notifier interface {
	Send(text string)
	// Close drains any queued messages and stops background delivery.
	Close()
}

// Noop discards every message. Used when notifications are disabled.
type Noop struct{}

func (Noop) Send(string) {}
func (Noop) Close()      {}
