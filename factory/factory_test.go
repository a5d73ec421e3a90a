package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/config"
	"github.com/PolyTorus/polytorus-sub000/factory"
	"github.com/PolyTorus/polytorus-sub000/types"
)

func TestBuildDefaultStack(t *testing.T) {
	cfg, err := config.NewBuilder().Build()
	require.NoError(t, err)

	b := bus.New()
	layers, err := factory.Build(cfg, b)
	require.NoError(t, err)

	require.NotNil(t, layers.Consensus)
	require.NotNil(t, layers.Execution)
	require.NotNil(t, layers.Settlement)
	require.NotNil(t, layers.DA)

	// Every constructed layer is registered with the bus.
	assert.Len(t, b.Layers(), 4)
	for _, lt := range []types.LayerType{
		types.LayerConsensus,
		types.LayerExecution,
		types.LayerSettlement,
		types.LayerDataAvailability,
	} {
		info, ok := b.LayerInfo(lt)
		require.True(t, ok, "layer %s not registered", lt)
		assert.Equal(t, types.HealthHealthy, info.HealthStatus)
		assert.NotEmpty(t, info.Capabilities)
	}
}

func TestBuildAppliesOptions(t *testing.T) {
	cfg, err := config.NewBuilder().
		WithOption("consensus", "difficulty", 2).
		WithOption("execution", "gas_limit", 750_000).
		Build()
	require.NoError(t, err)

	layers, err := factory.Build(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), layers.Consensus.Difficulty())

	// The configured gas limit is enforced during execution: a block
	// whose transactions exceed it is rejected.
	ctx := context.Background()
	txs := make([]types.Transaction, 40)
	for i := range txs {
		txs[i] = types.Transaction{From: "a", To: "b", Amount: 1, Nonce: uint64(i + 1)}
	}
	_, err = layers.Execution.ExecuteBlock(ctx, &types.Block{Height: 0, Transactions: txs})
	_, ok := modular.IsGasLimitExceeded(err)
	assert.True(t, ok, "want GasLimitExceededError, got %v", err)
}

func TestBuildUnknownImplementation(t *testing.T) {
	cfg, err := config.NewBuilder().
		WithLayer("consensus", config.LayerConfig{
			Implementation: "tendermint",
			Enabled:        true,
			Priority:       10,
		}).
		Build()
	require.NoError(t, err)

	_, err = factory.Build(cfg, bus.New())
	require.ErrorIs(t, err, modular.ErrLayerNotFound)
}

func TestBuildDisabledLayerSkipped(t *testing.T) {
	cfg, err := config.NewBuilder().
		WithDisabled("data_availability").
		Build()
	require.NoError(t, err)

	b := bus.New()
	layers, err := factory.Build(cfg, b)
	require.NoError(t, err)

	assert.Nil(t, layers.DA)
	assert.Len(t, b.Layers(), 3)
	_, ok := b.LayerInfo(types.LayerDataAvailability)
	assert.False(t, ok)
}

func TestBuildWiresFraudProofReExecution(t *testing.T) {
	cfg, err := config.NewBuilder().Build()
	require.NoError(t, err)
	layers, err := factory.Build(cfg, nil)
	require.NoError(t, err)

	// With execution attached, a proof against an unknown batch is
	// rejected. The heuristic mode would have accepted it, since the
	// proof data is non-empty and the roots disagree.
	ctx := context.Background()
	valid := layers.Settlement.VerifyFraudProof(ctx, &types.FraudProof{
		BatchID:           types.HashBytes([]byte("ghost")),
		ExpectedStateRoot: types.HashBytes([]byte("x")),
		ActualStateRoot:   types.HashBytes([]byte("y")),
		ProofData:         []byte{1},
	})
	assert.False(t, valid)
}
