package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/appforge-ai/AppForge/internal/domain/event"
)

// Pool fans events out to a fixed set of workers, hashing by instance
// id so every event for one instance lands on the same worker and is
// processed strictly in arrival order. Different instances run in
// parallel.
type Pool struct {
	engine *Engine
	logger *slog.Logger
	lanes  []chan *event.Event
	group  *errgroup.Group
	cancel context.CancelFunc
}

const laneBuffer = 128

// NewPool starts workers goroutines handling events through eng.
func NewPool(eng *Engine, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &Pool{
		engine: eng,
		logger: logger,
		lanes:  make([]chan *event.Event, workers),
		group:  group,
		cancel: cancel,
	}
	for i := range p.lanes {
		lane := make(chan *event.Event, laneBuffer)
		p.lanes[i] = lane
		group.Go(func() error {
			p.run(ctx, lane)
			return nil
		})
	}
	return p
}

// Submit enqueues an event for its instance's lane. It blocks when the
// lane is full, applying backpressure to the producer.
func (p *Pool) Submit(ctx context.Context, ev *event.Event) error {
	if ev.ProjectID == "" {
		return fmt.Errorf("pool: event %s has no instance id", ev.ID)
	}
	lane := p.lanes[laneFor(ev.ProjectID, len(p.lanes))]
	select {
	case lane <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, lane <-chan *event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-lane:
			if err := p.engine.HandleEvent(ctx, ev); err != nil {
				p.logger.Error("event handling failed",
					"event_id", ev.ID, "instance_id", ev.ProjectID, "error", err)
			}
		}
	}
}

// Close stops the workers. Events still buffered in lanes are dropped;
// callers drain producers first during graceful shutdown.
func (p *Pool) Close() {
	p.cancel()
	_ = p.group.Wait()
}

func laneFor(instanceID string, lanes int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(instanceID))
	return int(h.Sum32() % uint32(lanes))
}
