package modtest

import (
	"context"
	"errors"
	"testing"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// SealedBlock builds a mined block at the given height. Difficulty
// zero, so any consensus layer whose work target accepts arbitrary
// hashes (difficulty 0 in the shipped implementation) will take it.
func SealedBlock(height int64, prev types.Hash, txs ...types.Transaction) *types.Block {
	block := &types.Block{
		Height:       height,
		PrevHash:     prev,
		Timestamp:    uint64(1700000000 + height),
		Difficulty:   0,
		Transactions: txs,
	}
	if err := block.Mine(context.Background()); err != nil {
		panic(err)
	}
	return block
}

// RunConsensusCompliance verifies the behavioral contract of a
// consensus layer. The factory must return a fresh layer per call,
// configured with a work target that accepts difficulty-zero blocks.
func RunConsensusCompliance(t *testing.T, factory func() modular.ConsensusLayer) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty_chain_height_zero", func(t *testing.T) {
		layer := factory()
		h, err := layer.BlockHeight(ctx)
		if err != nil {
			t.Fatalf("BlockHeight: %v", err)
		}
		if h != 0 {
			t.Errorf("empty chain height = %d, want 0", h)
		}
	})

	t.Run("genesis_extends_empty_chain", func(t *testing.T) {
		layer := factory()
		genesis := SealedBlock(0, types.Hash{})
		if err := layer.AddBlock(ctx, genesis); err != nil {
			t.Fatalf("genesis rejected: %v", err)
		}
		next := SealedBlock(1, genesis.Hash)
		if err := layer.AddBlock(ctx, next); err != nil {
			t.Fatalf("block 1 rejected: %v", err)
		}
		h, _ := layer.BlockHeight(ctx)
		if h != 1 {
			t.Errorf("height = %d, want 1", h)
		}
	})

	t.Run("genesis_requires_empty_parent", func(t *testing.T) {
		layer := factory()
		bad := SealedBlock(0, types.HashBytes([]byte("orphan")))
		if layer.ValidateBlock(ctx, bad) {
			t.Error("genesis with a parent accepted")
		}
	})

	t.Run("rejects_height_skip", func(t *testing.T) {
		layer := factory()
		genesis := SealedBlock(0, types.Hash{})
		if err := layer.AddBlock(ctx, genesis); err != nil {
			t.Fatalf("genesis: %v", err)
		}
		skip := SealedBlock(2, genesis.Hash)
		if layer.ValidateBlock(ctx, skip) {
			t.Error("height skip accepted")
		}
	})

	t.Run("rejects_wrong_parent", func(t *testing.T) {
		layer := factory()
		genesis := SealedBlock(0, types.Hash{})
		if err := layer.AddBlock(ctx, genesis); err != nil {
			t.Fatalf("genesis: %v", err)
		}
		orphan := SealedBlock(1, types.HashBytes([]byte("elsewhere")))
		if layer.ValidateBlock(ctx, orphan) {
			t.Error("wrong parent accepted")
		}
	})

	t.Run("validate_never_mutates", func(t *testing.T) {
		layer := factory()
		genesis := SealedBlock(0, types.Hash{})
		for i := 0; i < 3; i++ {
			layer.ValidateBlock(ctx, genesis)
		}
		h, _ := layer.BlockHeight(ctx)
		chain, _ := layer.CanonicalChain(ctx)
		if h != 0 || len(chain) != 0 {
			t.Errorf("validation mutated the chain: height=%d len=%d", h, len(chain))
		}
	})

	t.Run("block_by_hash", func(t *testing.T) {
		layer := factory()
		genesis := SealedBlock(0, types.Hash{})
		if err := layer.AddBlock(ctx, genesis); err != nil {
			t.Fatalf("genesis: %v", err)
		}
		got, err := layer.BlockByHash(ctx, genesis.Hash)
		if err != nil {
			t.Fatalf("BlockByHash: %v", err)
		}
		if got.Height != 0 || !got.Hash.Equal(genesis.Hash) {
			t.Errorf("wrong block returned: height=%d", got.Height)
		}
		if _, err := layer.BlockByHash(ctx, types.HashBytes([]byte("missing"))); !errors.Is(err, modular.ErrBlockNotFound) {
			t.Errorf("missing hash: got %v, want ErrBlockNotFound", err)
		}
	})

	t.Run("canonical_chain_is_a_copy", func(t *testing.T) {
		layer := factory()
		genesis := SealedBlock(0, types.Hash{})
		if err := layer.AddBlock(ctx, genesis); err != nil {
			t.Fatalf("genesis: %v", err)
		}
		chain, _ := layer.CanonicalChain(ctx)
		chain[0].Height = 99
		again, _ := layer.CanonicalChain(ctx)
		if again[0].Height != 0 {
			t.Error("mutating the returned chain changed layer state")
		}
	})
}

// RunExecutionCompliance verifies the behavioral contract of an
// execution layer: receipt folding, the single-slot context
// protocol, and re-execution verification.
func RunExecutionCompliance(t *testing.T, factory func() modular.ExecutionLayer) {
	t.Helper()
	ctx := context.Background()

	txs := []types.Transaction{
		MakeTx("alice", "bob", 5, 1),
		MakeTx("bob", "carol", 2, 1),
	}

	t.Run("execute_block_folds_receipts", func(t *testing.T) {
		layer := factory()
		prev, err := layer.StateRoot(ctx)
		if err != nil {
			t.Fatalf("StateRoot: %v", err)
		}
		result, err := layer.ExecuteBlock(ctx, &types.Block{Height: 1, Transactions: txs})
		if err != nil {
			t.Fatalf("ExecuteBlock: %v", err)
		}
		if len(result.Receipts) != len(txs) {
			t.Fatalf("receipts = %d, want %d", len(result.Receipts), len(txs))
		}
		want := types.FoldStateRoot(prev, result.Receipts)
		if !result.StateRoot.Equal(want) {
			t.Errorf("state root %s does not fold from receipts (want %s)", result.StateRoot, want)
		}
	})

	t.Run("execute_transaction_keeps_committed_root", func(t *testing.T) {
		layer := factory()
		before, _ := layer.StateRoot(ctx)
		if _, err := layer.ExecuteTransaction(ctx, txs[0]); err != nil {
			t.Fatalf("ExecuteTransaction: %v", err)
		}
		after, _ := layer.StateRoot(ctx)
		if !before.Equal(after) {
			t.Error("ExecuteTransaction advanced the committed root")
		}
	})

	t.Run("context_is_single_slot", func(t *testing.T) {
		layer := factory()
		if _, err := layer.CommitExecution(ctx); !errors.Is(err, modular.ErrNoActiveContext) {
			t.Errorf("commit without begin: got %v", err)
		}
		if err := layer.RollbackExecution(ctx); !errors.Is(err, modular.ErrNoActiveContext) {
			t.Errorf("rollback without begin: got %v", err)
		}
		if err := layer.BeginExecution(ctx); err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := layer.BeginExecution(ctx); !errors.Is(err, modular.ErrContextActive) {
			t.Errorf("double begin: got %v", err)
		}
		if err := layer.RollbackExecution(ctx); err != nil {
			t.Fatalf("rollback: %v", err)
		}
	})

	t.Run("commit_folds_buffered_receipts", func(t *testing.T) {
		layer := factory()
		prev, _ := layer.StateRoot(ctx)
		if err := layer.BeginExecution(ctx); err != nil {
			t.Fatalf("begin: %v", err)
		}
		var receipts []types.TransactionReceipt
		for _, tx := range txs {
			r, err := layer.ExecuteTransaction(ctx, tx)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			receipts = append(receipts, r)
		}
		root, err := layer.CommitExecution(ctx)
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		want := types.FoldStateRoot(prev, receipts)
		if !root.Equal(want) {
			t.Errorf("committed root %s, want fold %s", root, want)
		}
		now, _ := layer.StateRoot(ctx)
		if !now.Equal(root) {
			t.Error("StateRoot disagrees with CommitExecution return")
		}
	})

	t.Run("rollback_discards_buffered_receipts", func(t *testing.T) {
		layer := factory()
		before, _ := layer.StateRoot(ctx)
		if err := layer.BeginExecution(ctx); err != nil {
			t.Fatalf("begin: %v", err)
		}
		if _, err := layer.ExecuteTransaction(ctx, txs[0]); err != nil {
			t.Fatalf("execute: %v", err)
		}
		if err := layer.RollbackExecution(ctx); err != nil {
			t.Fatalf("rollback: %v", err)
		}
		after, _ := layer.StateRoot(ctx)
		if !before.Equal(after) {
			t.Error("rollback changed the committed root")
		}
	})

	t.Run("verify_execution", func(t *testing.T) {
		layer := factory()
		prev, _ := layer.StateRoot(ctx)
		result, err := layer.ExecuteBlock(ctx, &types.Block{Height: 1, Transactions: txs})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		batch := &types.ExecutionBatch{
			BatchID:       types.HashBytes([]byte("compliance")),
			Transactions:  txs,
			Results:       result.Receipts,
			PrevStateRoot: prev,
			NewStateRoot:  result.StateRoot,
		}
		valid, err := layer.VerifyExecution(ctx, batch)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !valid {
			t.Error("honest batch rejected")
		}
		batch.NewStateRoot = types.HashBytes([]byte("forged"))
		valid, err = layer.VerifyExecution(ctx, batch)
		if err != nil {
			t.Fatalf("verify forged: %v", err)
		}
		if valid {
			t.Error("forged batch accepted")
		}
	})
}

// RunSettlementCompliance verifies the behavioral contract of a
// settlement layer: history growth and ordering, root movement, and
// challenge result identity.
func RunSettlementCompliance(t *testing.T, factory func() modular.SettlementLayer) {
	t.Helper()
	ctx := context.Background()

	newBatch := func(seed string) *types.ExecutionBatch {
		txs := []types.Transaction{MakeTx("alice", "bob", 1, 1)}
		return MakeBatch(types.HashBytes([]byte(seed)), types.HashBytes([]byte("prev-"+seed)), txs)
	}

	t.Run("settle_appends_history", func(t *testing.T) {
		layer := factory()
		for i, seed := range []string{"a", "b", "c"} {
			if _, err := layer.SettleBatch(ctx, newBatch(seed)); err != nil {
				t.Fatalf("settle %d: %v", i, err)
			}
		}
		history, err := layer.SettlementHistory(ctx, 10)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 3 {
			t.Errorf("history length = %d, want 3", len(history))
		}
	})

	t.Run("history_limit_returns_most_recent", func(t *testing.T) {
		layer := factory()
		var last types.SettlementResult
		for _, seed := range []string{"a", "b", "c", "d", "e"} {
			r, err := layer.SettleBatch(ctx, newBatch(seed))
			if err != nil {
				t.Fatalf("settle: %v", err)
			}
			last = r
		}
		history, err := layer.SettlementHistory(ctx, 2)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("history length = %d, want 2", len(history))
		}
		if !history[1].SettlementRoot.Equal(last.SettlementRoot) {
			t.Error("last history entry is not the most recent settlement")
		}
	})

	t.Run("settlement_root_moves", func(t *testing.T) {
		layer := factory()
		before, _ := layer.SettlementRoot(ctx)
		if _, err := layer.SettleBatch(ctx, newBatch("move")); err != nil {
			t.Fatalf("settle: %v", err)
		}
		after, err := layer.SettlementRoot(ctx)
		if err != nil {
			t.Fatalf("root: %v", err)
		}
		if before.Equal(after) {
			t.Error("settling a batch did not move the root")
		}
	})

	t.Run("challenge_result_carries_id", func(t *testing.T) {
		layer := factory()
		batch := newBatch("disputed")
		if _, err := layer.SettleBatch(ctx, batch); err != nil {
			t.Fatalf("settle: %v", err)
		}
		result, err := layer.ProcessChallenge(ctx, &types.SettlementChallenge{
			ChallengeID: "challenge-1",
			BatchID:     batch.BatchID,
			Proof:       types.FraudProof{BatchID: batch.BatchID},
			Challenger:  "watcher",
		})
		if err != nil {
			t.Fatalf("challenge: %v", err)
		}
		if result.ChallengeID != "challenge-1" {
			t.Errorf("result id %q, want challenge-1", result.ChallengeID)
		}
	})
}
