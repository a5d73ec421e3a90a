package bus_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/types"
)

func healthMsg() types.ModularMessage {
	return types.ModularMessage{
		Type:        types.MessageHealthCheck,
		SourceLayer: types.LayerConsensus,
		Priority:    types.PriorityNormal,
		Payload: types.MessagePayload{
			Health: &types.HealthReport{Layer: types.LayerConsensus, Status: types.HealthHealthy},
		},
	}
}

func TestPublishWithoutSubscribersFails(t *testing.T) {
	b := bus.New()
	err := b.Publish(context.Background(), healthMsg())
	assert.ErrorIs(t, err, modular.ErrNoChannelForType)
}

func TestPublishBroadcastsToAllSubscribers(t *testing.T) {
	b := bus.New()
	first := b.Subscribe(types.MessageHealthCheck)
	second := b.Subscribe(types.MessageHealthCheck)

	require.NoError(t, b.Publish(context.Background(), healthMsg()))

	m1 := <-first
	m2 := <-second
	assert.Equal(t, m1.ID, m2.ID, "subscribers saw different messages")
	assert.NotEmpty(t, m1.ID, "missing generated message id")
	assert.NotZero(t, m1.Timestamp, "missing stamped timestamp")
}

func TestPublishRespectsCanceledContext(t *testing.T) {
	b := bus.New()
	b.Subscribe(types.MessageHealthCheck)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, b.Publish(ctx, healthMsg()))
}

func TestSlowSubscriberLosesOldest(t *testing.T) {
	b := bus.New()
	ch := b.Subscribe(types.MessageHealthCheck)
	ctx := context.Background()

	// Fill the subscriber buffer and then one more. The publisher
	// must not block; the oldest unread message is evicted.
	const capacity = 1000
	for i := 0; i < capacity+1; i++ {
		msg := healthMsg()
		msg.ID = strconv.Itoa(i)
		require.NoError(t, b.Publish(ctx, msg))
	}

	first := <-ch
	assert.NotEqual(t, "0", first.ID, "oldest message survived eviction")
	assert.Len(t, ch, capacity-1)
}

func TestRegistryUpsertAndHealth(t *testing.T) {
	b := bus.New()

	b.RegisterLayer(types.LayerInfo{
		LayerType:    types.LayerExecution,
		LayerID:      "batch",
		Capabilities: []string{"execute"},
		HealthStatus: types.HealthHealthy,
	})
	// Re-registration replaces, never duplicates.
	b.RegisterLayer(types.LayerInfo{
		LayerType:    types.LayerExecution,
		LayerID:      "batch-v2",
		HealthStatus: types.HealthHealthy,
	})

	assert.Len(t, b.Layers(), 1)
	info, ok := b.LayerInfo(types.LayerExecution)
	require.True(t, ok)
	assert.Equal(t, "batch-v2", info.LayerID)

	require.NoError(t, b.UpdateHealth(types.LayerExecution, types.HealthDegraded))
	info, _ = b.LayerInfo(types.LayerExecution)
	assert.Equal(t, types.HealthDegraded, info.HealthStatus)

	assert.ErrorIs(t, b.UpdateHealth(types.LayerSettlement, types.HealthHealthy), modular.ErrLayerNotFound)
}

func TestMetricsAccumulate(t *testing.T) {
	b := bus.New()
	b.Subscribe(types.MessageHealthCheck)
	b.Subscribe(types.MessageBlockProposal)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, healthMsg()))
	require.NoError(t, b.Publish(ctx, healthMsg()))

	block := types.ModularMessage{
		Type:        types.MessageBlockProposal,
		SourceLayer: types.LayerConsensus,
		Priority:    types.PriorityCritical,
	}
	require.NoError(t, b.Publish(ctx, block))

	m := b.Metrics()
	assert.Equal(t, uint64(3), m.TotalMessages)
	assert.Equal(t, uint64(2), m.PerType[types.MessageHealthCheck])
	assert.Equal(t, uint64(1), m.PerType[types.MessageBlockProposal])
	assert.Equal(t, uint64(1), m.PerPriority[types.PriorityCritical])
	assert.GreaterOrEqual(t, m.AverageLatency, time.Duration(0))
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	b := bus.New()
	b.Subscribe(types.MessageHealthCheck)
	require.NoError(t, b.Publish(context.Background(), healthMsg()))

	snap := b.Metrics()
	snap.PerType[types.MessageHealthCheck] = 99

	again := b.Metrics()
	assert.Equal(t, uint64(1), again.PerType[types.MessageHealthCheck])
}

func TestWithRegistererExportsCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := bus.New(bus.WithRegisterer(reg))
	b.Subscribe(types.MessageHealthCheck)
	require.NoError(t, b.Publish(context.Background(), healthMsg()))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "no metrics registered")
}
