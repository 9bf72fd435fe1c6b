package resilience

import (
	"context"

	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
)

// Queue wraps a message queue with a circuit breaker on Publish.
// Subscriptions pass through untouched; only the outbound path can
// pile up failures fast enough to need a breaker.
type Queue struct {
	inner   messagequeue.Queue
	breaker *Breaker
}

var _ messagequeue.Queue = (*Queue)(nil)

func WrapQueue(inner messagequeue.Queue, breaker *Breaker) *Queue {
	return &Queue{inner: inner, breaker: breaker}
}

func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	return q.breaker.Execute(func() error {
		return q.inner.Publish(ctx, subject, data)
	})
}

func (q *Queue) Subscribe(ctx context.Context, subject string, h messagequeue.Handler) (func(), error) {
	return q.inner.Subscribe(ctx, subject, h)
}

func (q *Queue) Drain() error { return q.inner.Drain() }

func (q *Queue) Close() error { return q.inner.Close() }

// IsConnected reports queue connectivity, treating an open circuit as
// unhealthy so readiness checks flip before the connection itself dies.
func (q *Queue) IsConnected() bool {
	return q.inner.IsConnected() && q.breaker.State() != "open"
}
