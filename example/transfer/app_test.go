package transfer

import (
	"context"
	"testing"

	"github.com/PolyTorus/polytorus-sub000/execution"
	"github.com/PolyTorus/polytorus-sub000/types"
)

func TestTransferMovesBalance(t *testing.T) {
	ledger := NewLedger(map[types.Address]uint64{"alice": 100})

	receipt, err := ledger.Process(context.Background(), types.Transaction{
		From: "alice", To: "bob", Amount: 40, Nonce: 1,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !receipt.Success {
		t.Fatalf("transfer rejected: %s", receipt.Info)
	}
	if got := ledger.Balance("alice"); got != 60 {
		t.Errorf("alice balance = %d, want 60", got)
	}
	if got := ledger.Balance("bob"); got != 40 {
		t.Errorf("bob balance = %d, want 40", got)
	}
}

func TestTransferRejectsOverdraft(t *testing.T) {
	ledger := NewLedger(map[types.Address]uint64{"alice": 10})

	receipt, err := ledger.Process(context.Background(), types.Transaction{
		From: "alice", To: "bob", Amount: 50, Nonce: 1,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if receipt.Success {
		t.Fatal("overdraft accepted")
	}
	if ledger.Balance("alice") != 10 || ledger.Balance("bob") != 0 {
		t.Error("failed transfer moved balances")
	}
}

func TestTransferEnforcesNonceOrder(t *testing.T) {
	ledger := NewLedger(map[types.Address]uint64{"alice": 100})
	ctx := context.Background()

	if r, _ := ledger.Process(ctx, types.Transaction{From: "alice", To: "bob", Amount: 1, Nonce: 2}); r.Success {
		t.Fatal("nonce gap accepted")
	}
	if r, _ := ledger.Process(ctx, types.Transaction{From: "alice", To: "bob", Amount: 1, Nonce: 1}); !r.Success {
		t.Fatalf("first nonce rejected: %s", r.Info)
	}
	if r, _ := ledger.Process(ctx, types.Transaction{From: "alice", To: "bob", Amount: 1, Nonce: 1}); r.Success {
		t.Fatal("nonce replay accepted")
	}
}

func TestLedgerDrivesExecutionEngine(t *testing.T) {
	ledger := NewLedger(map[types.Address]uint64{"alice": 100})
	engine := execution.NewEngine(nil, ledger)
	ctx := context.Background()

	block := &types.Block{
		Height: 1,
		Transactions: []types.Transaction{
			{From: "alice", To: "bob", Amount: 30, Nonce: 1},
			{From: "bob", To: "carol", Amount: 10, Nonce: 1},
		},
	}
	result, err := engine.ExecuteBlock(ctx, block)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i, r := range result.Receipts {
		if !r.Success {
			t.Errorf("tx %d failed: %s", i, r.Info)
		}
	}
	if got := ledger.Balance("carol"); got != 10 {
		t.Errorf("carol balance = %d, want 10", got)
	}

	root, err := engine.StateRoot(ctx)
	if err != nil {
		t.Fatalf("state root: %v", err)
	}
	if !root.Equal(result.StateRoot) {
		t.Error("committed root does not match execution result")
	}
}
