package orchestrator

import (
	"context"
	"testing"

	"github.com/PolyTorus/polytorus-sub000/types"
)

func TestQueueRequeuePreservesOrder(t *testing.T) {
	q := newEventQueue()
	q.push(types.Event{Kind: types.EventBlockProposed})
	q.push(types.Event{Kind: types.EventBlockValidated})

	events := q.drain()
	if len(events) != 2 {
		t.Fatalf("drained %d events, want 2", len(events))
	}

	q.push(types.Event{Kind: types.EventBlockFinalized})
	q.requeue(events[1:])

	again := q.drain()
	if len(again) != 2 {
		t.Fatalf("drained %d events after requeue, want 2", len(again))
	}
	if again[0].Kind != types.EventBlockValidated {
		t.Errorf("requeued event not at the front: got %s", again[0].Kind)
	}
	if again[1].Kind != types.EventBlockFinalized {
		t.Errorf("newer event not behind requeued: got %s", again[1].Kind)
	}
}

func TestIsHighPriority(t *testing.T) {
	cases := []struct {
		name  string
		event types.Event
		want  bool
	}{
		{"critical_severity", types.Event{Kind: types.EventBlockProposed, Severity: types.SeverityCritical}, true},
		{"health_change", types.Event{Kind: types.EventLayerHealthChanged, Severity: types.SeverityInfo}, true},
		{"config_change", types.Event{Kind: types.EventConfigurationChanged, Severity: types.SeverityInfo}, true},
		{"high_alert", types.Event{Kind: types.EventPerformanceAlert, Severity: types.SeverityHigh}, true},
		{"warning_alert", types.Event{Kind: types.EventPerformanceAlert, Severity: types.SeverityWarning}, false},
		{"plain_info", types.Event{Kind: types.EventBlockFinalized, Severity: types.SeverityInfo}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isHighPriority(tc.event); got != tc.want {
				t.Errorf("isHighPriority = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPriorityDispatchCapsNormalBatch(t *testing.T) {
	o := New(Deps{}, nil)
	events := o.Subscribe()
	ctx := context.Background()

	// 15 normal events around 2 high-priority ones.
	for i := 0; i < 15; i++ {
		o.emit(types.EventBlockProposed, types.SeverityInfo, types.LayerConsensus, types.EventDetail{BlockHeight: int64(i)})
	}
	o.emit(types.EventLayerHealthChanged, types.SeverityHigh, types.LayerExecution, types.EventDetail{})
	o.emit(types.EventPerformanceAlert, types.SeverityCritical, types.LayerSettlement, types.EventDetail{})

	o.ProcessPriorityEvents(ctx)

	// One pass: both high-priority events plus at most ten normal.
	dispatched := len(events)
	if dispatched != 12 {
		t.Fatalf("first pass dispatched %d events, want 12", dispatched)
	}
	first := <-events
	if !isHighPriority(first) {
		t.Errorf("high-priority event not dispatched first: got %s", first.Kind)
	}
	if o.queue.len() != 5 {
		t.Errorf("queue holds %d leftovers, want 5", o.queue.len())
	}

	o.ProcessPriorityEvents(ctx)
	if o.queue.len() != 0 {
		t.Errorf("second pass left %d events queued", o.queue.len())
	}
	if got := len(events); got != 11+5 {
		t.Errorf("after second pass channel holds %d, want 16", got)
	}
}

func TestProcessPriorityEventsRespectsContext(t *testing.T) {
	o := New(Deps{}, nil)
	o.emit(types.EventBlockProposed, types.SeverityInfo, types.LayerConsensus, types.EventDetail{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.ProcessPriorityEvents(ctx)

	if o.queue.len() != 1 {
		t.Error("canceled pass consumed the queue")
	}
}

func TestMetricsCountDispatches(t *testing.T) {
	o := New(Deps{}, nil)
	for i := 0; i < 3; i++ {
		o.emit(types.EventBlockFinalized, types.SeverityInfo, types.LayerConsensus, types.EventDetail{})
	}
	o.ProcessPriorityEvents(context.Background())

	if got := o.Metrics().EventsDispatched; got != 3 {
		t.Errorf("EventsDispatched = %d, want 3", got)
	}
}
