package notifier

import (
	"context"
	"errors"
)

// Multi fans a message out to several notifiers (queue, websocket
// hub).
// Every notifier is attempted; errors are joined so one slow or broken
// channel never hides the others.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
