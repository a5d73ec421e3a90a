// Package bus implements the typed publish/subscribe message bus and
// the layer registry.
//
// Delivery is broadcast: every current subscriber of a message type
// receives every message published to it. Subscriber channels hold a
// bounded history; a subscriber that falls behind loses its oldest
// unread messages instead of blocking the publisher.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// channelHistory bounds each subscriber's unread buffer.
const channelHistory = 1000

// Bus routes typed messages between layers and tracks the layer
// registry. Registry, channels and metrics share one lock held only
// briefly; channel sends never block.
type Bus struct {
	mu sync.RWMutex

	registry map[types.LayerType]types.LayerInfo
	channels map[types.MessageType][]chan types.ModularMessage

	metrics Metrics
	prom    *promMetrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithRegisterer registers the bus's prometheus collectors with reg.
// Without this option only the in-memory metrics are kept.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(b *Bus) {
		b.prom = newPromMetrics(reg)
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		registry: make(map[types.LayerType]types.LayerInfo),
		channels: make(map[types.MessageType][]chan types.ModularMessage),
		metrics: Metrics{
			PerType:     make(map[types.MessageType]uint64),
			PerPriority: make(map[types.MessagePriority]uint64),
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterLayer upserts a registry entry keyed by layer type.
// Idempotent: re-registering replaces the previous entry.
func (b *Bus) RegisterLayer(info types.LayerInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registry[info.LayerType] = info
}

// UpdateHealth records a layer's health. The entry must exist.
func (b *Bus) UpdateHealth(layer types.LayerType, status types.HealthStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.registry[layer]
	if !ok {
		return modular.ErrLayerNotFound
	}
	info.HealthStatus = status
	b.registry[layer] = info
	return nil
}

// LayerInfo returns the registry entry for a layer.
func (b *Bus) LayerInfo(layer types.LayerType) (types.LayerInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.registry[layer]
	return info, ok
}

// Layers returns a copy of the registry.
func (b *Bus) Layers() []types.LayerInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]types.LayerInfo, 0, len(b.registry))
	for _, info := range b.registry {
		out = append(out, info)
	}
	return out
}

// Subscribe returns a new receive end for a message type, creating
// the type's channel list on first use. Subscribers must subscribe
// before a publish for that type can succeed.
func (b *Bus) Subscribe(mt types.MessageType) <-chan types.ModularMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.ModularMessage, channelHistory)
	b.channels[mt] = append(b.channels[mt], ch)
	return ch
}

// Publish broadcasts a message to every subscriber of its type. A
// full subscriber buffer loses its oldest unread message; the
// publisher never blocks. Fails with ErrNoChannelForType if nobody
// has subscribed to the type.
func (b *Bus) Publish(ctx context.Context, msg types.ModularMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = uint64(time.Now().UnixNano())
	}
	start := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.channels[msg.Type]
	if !ok || len(subs) == 0 {
		return modular.ErrNoChannelForType
	}

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			// Subscriber fell behind: evict its oldest unread
			// message to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- msg:
			default:
			}
		}
	}

	b.metrics.record(msg, time.Since(start))
	if b.prom != nil {
		b.prom.observe(msg, time.Since(start))
	}
	return nil
}
