package modtest

import (
	"context"
	"testing"
	"time"

	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/orchestrator"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Harness wires mocks (or real layers, via WithDeps) behind a
// started orchestrator so tests can drive whole-pipeline scenarios.
type Harness struct {
	t *testing.T

	Consensus  *MockConsensus
	Execution  *MockExecution
	Settlement *MockSettlement
	DA         *MockDA
	Bus        *bus.Bus
	Orch       *orchestrator.Orchestrator

	Events <-chan types.Event
}

// HarnessOption adjusts harness construction.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	deps *orchestrator.Deps
	opts *orchestrator.Options
}

// WithDeps substitutes real layers for the default mocks. Nil fields
// keep their mock.
func WithDeps(deps orchestrator.Deps) HarnessOption {
	return func(c *harnessConfig) { c.deps = &deps }
}

// WithOptions overrides the orchestrator options. The default uses
// difficulty 1 so mining stays fast under test.
func WithOptions(opts orchestrator.Options) HarnessOption {
	return func(c *harnessConfig) { c.opts = &opts }
}

// NewHarness builds and starts an orchestrator over mock layers.
// The orchestrator is stopped during test cleanup.
func NewHarness(t *testing.T, opts ...HarnessOption) *Harness {
	t.Helper()

	cfg := &harnessConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &Harness{
		t:          t,
		Consensus:  &MockConsensus{},
		Execution:  &MockExecution{},
		Settlement: &MockSettlement{},
		DA:         &MockDA{},
		Bus:        bus.New(),
	}

	deps := orchestrator.Deps{
		Consensus:  h.Consensus,
		Execution:  h.Execution,
		Settlement: h.Settlement,
		DA:         h.DA,
		Bus:        h.Bus,
	}
	if cfg.deps != nil {
		if cfg.deps.Consensus != nil {
			deps.Consensus = cfg.deps.Consensus
		}
		if cfg.deps.Execution != nil {
			deps.Execution = cfg.deps.Execution
		}
		if cfg.deps.Settlement != nil {
			deps.Settlement = cfg.deps.Settlement
		}
		if cfg.deps.DA != nil {
			deps.DA = cfg.deps.DA
		}
		if cfg.deps.Bus != nil {
			deps.Bus = cfg.deps.Bus
			h.Bus = cfg.deps.Bus
		}
	}

	oopts := cfg.opts
	if oopts == nil {
		oopts = &orchestrator.Options{Difficulty: 1, HealthInterval: 0}
	}

	h.Orch = orchestrator.New(deps, oopts)
	h.Events = h.Orch.Subscribe()

	if err := h.Orch.Start(context.Background()); err != nil {
		t.Fatalf("start orchestrator: %v", err)
	}
	t.Cleanup(func() {
		if h.Orch.IsRunning() {
			if err := h.Orch.Stop(); err != nil {
				t.Errorf("stop orchestrator: %v", err)
			}
		}
	})
	return h
}

// ProcessTxs builds a block from txs and drives it through the full
// pipeline, failing the test on any stage error.
func (h *Harness) ProcessTxs(txs ...types.Transaction) *types.Block {
	h.t.Helper()

	ctx := context.Background()
	block, err := h.Orch.BuildBlock(ctx, txs)
	if err != nil {
		h.t.Fatalf("build block: %v", err)
	}
	processed, err := h.Orch.ProcessBlock(ctx, block)
	if err != nil {
		h.t.Fatalf("process block: %v", err)
	}
	return processed
}

// WaitEvent blocks until an event of the given kind is dispatched,
// failing the test after the timeout. Other events are consumed and
// discarded.
func (h *Harness) WaitEvent(kind types.EventKind, timeout time.Duration) types.Event {
	h.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case e := <-h.Events:
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			h.t.Fatalf("no %s event within %v", kind, timeout)
			return types.Event{}
		}
	}
}

// MakeTx builds a transaction with a deterministic payload.
func MakeTx(from, to types.Address, amount, nonce uint64) types.Transaction {
	return types.Transaction{From: from, To: to, Amount: amount, Nonce: nonce}
}

// MakeBatch builds a settlement batch whose claimed root honestly
// folds from prev through the receipts.
func MakeBatch(id types.Hash, prev types.Hash, txs []types.Transaction) *types.ExecutionBatch {
	receipts := make([]types.TransactionReceipt, len(txs))
	for i, tx := range txs {
		receipts[i] = types.TransactionReceipt{TxHash: tx.Hash(), Success: true, GasUsed: 21000}
	}
	return &types.ExecutionBatch{
		BatchID:       id,
		Transactions:  txs,
		Results:       receipts,
		PrevStateRoot: prev,
		NewStateRoot:  types.FoldStateRoot(prev, receipts),
	}
}
