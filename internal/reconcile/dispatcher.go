package reconcile

import (
	"context"
	"sync"

	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/internal/observability/metrics"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// Handler processes one event off the queue.
type Handler func(ctx context.Context, evt events.Event)

// Dispatcher is the hand-off between the webhook receiver and the
// reconciliation workers: a bounded in-process queue. Dispatch never
// blocks the caller; when the queue is full the event is dropped and
// counted, and the bulk sync endpoint is the repair path.
type Dispatcher struct {
	ch      chan events.Event
	handler Handler
	logger  *logging.Logger
	metrics *metrics.WebhookMetrics

	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given buffer capacity.
func NewDispatcher(buffer int, handler Handler, logger *logging.Logger, m *metrics.WebhookMetrics) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		ch:      make(chan events.Event, buffer),
		handler: handler,
		logger:  logger,
		metrics: m,
	}
}

// Start launches workers goroutines that drain the queue until ctx is
// cancelled or Close is called. Subsequent calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	d.startOnce.Do(func() {
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.work(ctx)
		}
	})
}

// Dispatch enqueues an event without blocking. Returns false when the
// queue is full or the dispatcher is stopped.
func (d *Dispatcher) Dispatch(evt events.Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.ch <- evt:
		return true
	default:
		d.metrics.ObserveDispatchDropped()
		d.logger.Warn("reconcile queue full, dropping event",
			"event_key", evt.LogKey(), "event_type", evt.Type)
		return false
	}
}

// Close stops accepting events and waits for workers to drain what was
// already queued.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.ch)
	})
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-d.ch:
			if !ok {
				return
			}
			d.handler(ctx, evt)
		}
	}
}
