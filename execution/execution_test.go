package execution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/execution"
	modtest "github.com/PolyTorus/polytorus-sub000/testing"
	"github.com/PolyTorus/polytorus-sub000/types"
)

func TestEngineCompliance(t *testing.T) {
	modtest.RunExecutionCompliance(t, func() modular.ExecutionLayer {
		return execution.NewEngine(nil, nil)
	})
}

func TestGasLimitBoundary(t *testing.T) {
	ctx := context.Background()

	// Two payload-free transactions cost exactly 2*BaseGas.
	txs := []types.Transaction{
		{From: "a", To: "b", Amount: 1, Nonce: 1},
		{From: "b", To: "c", Amount: 1, Nonce: 1},
	}

	t.Run("exact_limit_passes", func(t *testing.T) {
		engine := execution.NewEngine(&execution.Config{GasLimit: 2 * execution.BaseGas}, nil)
		result, err := engine.ExecuteBlock(ctx, &types.Block{Height: 1, Transactions: txs})
		require.NoError(t, err)
		assert.Equal(t, uint64(2*execution.BaseGas), result.GasUsed)
	})

	t.Run("one_over_fails_wholesale", func(t *testing.T) {
		engine := execution.NewEngine(&execution.Config{GasLimit: 2*execution.BaseGas - 1}, nil)
		before, err := engine.StateRoot(ctx)
		require.NoError(t, err)

		_, err = engine.ExecuteBlock(ctx, &types.Block{Height: 1, Transactions: txs})
		gerr, ok := modular.IsGasLimitExceeded(err)
		require.True(t, ok, "expected GasLimitExceededError, got %v", err)
		assert.Equal(t, uint64(2*execution.BaseGas), gerr.GasUsed)

		after, err := engine.StateRoot(ctx)
		require.NoError(t, err)
		assert.True(t, before.Equal(after), "failed block advanced the root")
	})
}

func TestExecuteBlockBuffersIntoOpenContext(t *testing.T) {
	engine := execution.NewEngine(nil, nil)
	ctx := context.Background()

	require.NoError(t, engine.BeginExecution(ctx))
	before, _ := engine.StateRoot(ctx)

	result, err := engine.ExecuteBlock(ctx, &types.Block{
		Height:       1,
		Transactions: []types.Transaction{{From: "a", To: "b", Amount: 1, Nonce: 1}},
	})
	require.NoError(t, err)

	// The committed root stays put until commit.
	mid, _ := engine.StateRoot(ctx)
	assert.True(t, before.Equal(mid), "open context leaked into the committed root")

	root, err := engine.CommitExecution(ctx)
	require.NoError(t, err)
	assert.True(t, root.Equal(result.StateRoot), "commit root disagrees with execution result")
}

func TestPayloadGasAccounting(t *testing.T) {
	engine := execution.NewEngine(nil, nil)

	receipt, err := engine.ExecuteTransaction(context.Background(), types.Transaction{
		From: "a", To: "b", Amount: 1, Nonce: 1, Payload: make([]byte, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(execution.BaseGas+10*execution.PayloadGasPerByte), receipt.GasUsed)
}

func TestAccountStateLifecycle(t *testing.T) {
	engine := execution.NewEngine(nil, nil)
	ctx := context.Background()

	_, err := engine.AccountState(ctx, "alice")
	assert.ErrorIs(t, err, modular.ErrAccountNotFound)

	engine.SetAccountState("alice", types.AccountState{Balance: 42, Nonce: 7})
	state, err := engine.AccountState(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), state.Balance)
	assert.False(t, state.IsContract())

	engine.DeployContract("vault", []byte{0x60, 0x60})
	contract, err := engine.AccountState(ctx, "vault")
	require.NoError(t, err)
	require.True(t, contract.IsContract())
	expected := types.HashBytes([]byte{0x60, 0x60})
	assert.True(t, contract.CodeHash.Equal(expected))
}

func TestVerifyExecutionDetectsForgery(t *testing.T) {
	engine := execution.NewEngine(nil, nil)
	ctx := context.Background()

	txs := []types.Transaction{{From: "a", To: "b", Amount: 3, Nonce: 1}}
	prev, _ := engine.StateRoot(ctx)
	result, err := engine.ExecuteBlock(ctx, &types.Block{Height: 1, Transactions: txs})
	require.NoError(t, err)

	batch := &types.ExecutionBatch{
		BatchID:       types.HashBytes([]byte("batch")),
		Transactions:  txs,
		Results:       result.Receipts,
		PrevStateRoot: prev,
		NewStateRoot:  result.StateRoot,
	}
	valid, err := engine.VerifyExecution(ctx, batch)
	require.NoError(t, err)
	assert.True(t, valid)

	batch.NewStateRoot = types.HashBytes([]byte("forged"))
	valid, err = engine.VerifyExecution(ctx, batch)
	require.NoError(t, err)
	assert.False(t, valid)
}
