package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PolyTorus/polytorus-sub000/types"
)

// normalEventBatch caps how many normal-priority events one
// ProcessPriorityEvents pass dispatches after the high-priority ones.
const normalEventBatch = 10

// subscriberBuffer bounds each external event subscriber's channel.
const subscriberBuffer = 256

// eventQueue is the orchestrator's unbounded internal event queue.
type eventQueue struct {
	mu     sync.Mutex
	items  []types.Event
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e types.Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns all queued events.
func (q *eventQueue) drain() []types.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// requeue puts events back at the front of the queue, preserving
// their order ahead of anything pushed meanwhile.
func (q *eventQueue) requeue(events []types.Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(events, q.items...)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// emit queues an event on the internal stream.
func (o *Orchestrator) emit(kind types.EventKind, severity types.EventSeverity, layer types.LayerType, detail types.EventDetail) {
	o.queue.push(types.Event{
		Kind:      kind,
		Severity:  severity,
		Layer:     layer,
		Timestamp: uint64(time.Now().UnixNano()),
		Detail:    detail,
	})
}

// Subscribe returns a channel receiving every dispatched event. A
// subscriber that falls behind loses its oldest unread events.
func (o *Orchestrator) Subscribe() <-chan types.Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan types.Event, subscriberBuffer)
	o.subscribers = append(o.subscribers, ch)
	return ch
}

// RunEventLoop drains and dispatches queued events until the context
// is canceled. Start runs it in the orchestrator's task group; it is
// exported so tests and embedders can drive dispatch manually.
func (o *Orchestrator) RunEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.queue.notify:
			o.ProcessPriorityEvents(ctx)
		}
	}
}

// ProcessPriorityEvents dispatches one pass over the queue:
// high-priority events (critical or high-severity alerts, layer
// status and configuration changes) first and exhaustively, then at
// most normalEventBatch normal events. Leftover normal events stay
// queued for the next pass.
func (o *Orchestrator) ProcessPriorityEvents(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	events := o.queue.drain()
	if len(events) == 0 {
		return
	}

	var high, normal []types.Event
	for _, e := range events {
		if isHighPriority(e) {
			high = append(high, e)
		} else {
			normal = append(normal, e)
		}
	}

	for _, e := range high {
		o.dispatch(e)
	}
	n := len(normal)
	if n > normalEventBatch {
		n = normalEventBatch
	}
	for _, e := range normal[:n] {
		o.dispatch(e)
	}
	o.queue.requeue(normal[n:])

	if o.queue.len() > 0 {
		select {
		case o.queue.notify <- struct{}{}:
		default:
		}
	}
}

func isHighPriority(e types.Event) bool {
	if e.Severity == types.SeverityCritical {
		return true
	}
	switch e.Kind {
	case types.EventLayerHealthChanged, types.EventConfigurationChanged:
		return true
	case types.EventPerformanceAlert:
		return e.Severity >= types.SeverityHigh
	default:
		return false
	}
}

// dispatch delivers one event to the logging handler, the metric
// handlers and every subscriber.
func (o *Orchestrator) dispatch(e types.Event) {
	o.logEvent(e)

	o.mu.Lock()
	o.metrics.EventsDispatched++
	subs := o.subscribers
	o.mu.Unlock()

	if o.prom != nil {
		o.prom.events.WithLabelValues(e.Kind.String()).Inc()
	}

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

func (o *Orchestrator) logEvent(e types.Event) {
	attrs := []any{"kind", e.Kind.String(), "layer", e.Layer.String()}
	if e.Detail.BlockHeight != 0 {
		attrs = append(attrs, "height", e.Detail.BlockHeight)
	}
	if e.Detail.Message != "" {
		attrs = append(attrs, "detail", e.Detail.Message)
	}
	switch e.Severity {
	case types.SeverityCritical, types.SeverityHigh:
		slog.Warn("orchestrator event", attrs...)
	default:
		slog.Info("orchestrator event", attrs...)
	}
}
