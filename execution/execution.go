// Package execution implements the batch execution layer.
//
// The layer executes transaction batches through an injected
// Processor, accumulates gas against a block gas limit, and derives a
// new state root by folding receipts in execution order onto the
// previous root. It also owns the materialized account states and the
// single-slot begin/commit/rollback execution context.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Compile-time interface check.
var _ modular.ExecutionLayer = (*Engine)(nil)

// Config holds the execution layer configuration.
type Config struct {
	// GasLimit caps cumulative gas per block. Execution fails the
	// moment the running total crosses it.
	GasLimit uint64
}

// DefaultConfig returns the execution configuration used when none is
// supplied.
func DefaultConfig() *Config {
	return &Config{GasLimit: 10_000_000}
}

// executionContext is the single-slot buffer opened by BeginExecution.
type executionContext struct {
	receipts []types.TransactionReceipt
	gasUsed  uint64
}

// Engine is the batch execution layer. Committed state (root,
// accounts, code) and the context slot are guarded by one lock held
// only for the duration of each operation; transaction processing
// happens outside the lock.
type Engine struct {
	mu sync.RWMutex

	cfg  *Config
	proc Processor

	stateRoot types.Hash
	accounts  map[types.Address]types.AccountState
	code      map[types.Address][]byte

	ectx *executionContext
}

// NewEngine creates an execution layer. A nil processor gets the
// default HashProcessor.
func NewEngine(cfg *Config, proc Processor) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if proc == nil {
		proc = HashProcessor{}
	}
	return &Engine{
		cfg:      cfg,
		proc:     proc,
		accounts: make(map[types.Address]types.AccountState),
		code:     make(map[types.Address][]byte),
	}
}

// ExecuteBlock executes every transaction in the block and advances
// the committed state root. The whole block is rejected on the first
// transaction that pushes cumulative gas over the limit; no receipts
// are retained in that case.
func (e *Engine) ExecuteBlock(ctx context.Context, block *types.Block) (types.ExecutionResult, error) {
	receipts, gasUsed, err := e.processAll(ctx, block.Transactions)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	newRoot := types.FoldStateRoot(e.stateRoot, receipts)
	if e.ectx != nil {
		// An open context buffers the block instead of committing.
		e.ectx.receipts = append(e.ectx.receipts, receipts...)
		e.ectx.gasUsed += gasUsed
	} else {
		e.stateRoot = newRoot
	}

	slog.Debug("block executed", "height", block.Height, "txs", len(receipts), "gas", gasUsed, "root", newRoot)
	return types.ExecutionResult{
		StateRoot: newRoot,
		GasUsed:   gasUsed,
		Receipts:  receipts,
	}, nil
}

// processAll runs the processor over txs with gas accounting. No lock
// is held while the processor runs.
func (e *Engine) processAll(ctx context.Context, txs []types.Transaction) ([]types.TransactionReceipt, uint64, error) {
	receipts := make([]types.TransactionReceipt, 0, len(txs))
	var gasUsed uint64
	for i, tx := range txs {
		receipt, err := e.proc.Process(ctx, tx)
		if err != nil {
			return nil, 0, fmt.Errorf("process transaction %d: %w", i, err)
		}
		gasUsed += receipt.GasUsed
		if gasUsed > e.cfg.GasLimit {
			return nil, 0, &modular.GasLimitExceededError{GasUsed: gasUsed, GasLimit: e.cfg.GasLimit}
		}
		receipts = append(receipts, receipt)
	}
	return receipts, gasUsed, nil
}

// ExecuteTransaction runs a single transaction through the processor.
// It never advances the committed state root; with an open execution
// context the receipt is buffered there.
func (e *Engine) ExecuteTransaction(ctx context.Context, tx types.Transaction) (types.TransactionReceipt, error) {
	receipt, err := e.proc.Process(ctx, tx)
	if err != nil {
		return types.TransactionReceipt{}, fmt.Errorf("process transaction: %w", err)
	}
	if receipt.GasUsed > e.cfg.GasLimit {
		return types.TransactionReceipt{}, &modular.GasLimitExceededError{GasUsed: receipt.GasUsed, GasLimit: e.cfg.GasLimit}
	}

	e.mu.Lock()
	if e.ectx != nil {
		e.ectx.receipts = append(e.ectx.receipts, receipt)
		e.ectx.gasUsed += receipt.GasUsed
	}
	e.mu.Unlock()

	return receipt, nil
}

// StateRoot returns the committed state root.
func (e *Engine) StateRoot(_ context.Context) (types.Hash, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateRoot, nil
}

// VerifyExecution re-executes the batch's transactions from its
// previous state root and reports whether the claimed new root is
// reproduced.
func (e *Engine) VerifyExecution(ctx context.Context, batch *types.ExecutionBatch) (bool, error) {
	receipts, _, err := e.processAll(ctx, batch.Transactions)
	if err != nil {
		return false, fmt.Errorf("re-execute batch %s: %w", batch.BatchID, err)
	}
	root := types.FoldStateRoot(batch.PrevStateRoot, receipts)
	return root == batch.NewStateRoot, nil
}

// BeginExecution opens the execution context. The context is a
// single-slot resource: a second Begin while one is open is a caller
// error, not a merge.
func (e *Engine) BeginExecution(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ectx != nil {
		return modular.ErrContextActive
	}
	e.ectx = &executionContext{}
	return nil
}

// CommitExecution folds the context's buffered receipts into a new
// committed state root, clears the slot and returns the root.
func (e *Engine) CommitExecution(_ context.Context) (types.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ectx == nil {
		return types.Hash{}, modular.ErrNoActiveContext
	}
	e.stateRoot = types.FoldStateRoot(e.stateRoot, e.ectx.receipts)
	slog.Debug("execution context committed", "receipts", len(e.ectx.receipts), "gas", e.ectx.gasUsed, "root", e.stateRoot)
	e.ectx = nil
	return e.stateRoot, nil
}

// RollbackExecution discards the open context. The committed state
// root is untouched.
func (e *Engine) RollbackExecution(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ectx == nil {
		return modular.ErrNoActiveContext
	}
	slog.Debug("execution context rolled back", "receipts", len(e.ectx.receipts))
	e.ectx = nil
	return nil
}

// AccountState reads the materialized state of one account. Contract
// accounts carry a code hash derived from their stored bytecode.
func (e *Engine) AccountState(_ context.Context, addr types.Address) (types.AccountState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.accounts[addr]
	if !ok {
		return types.AccountState{}, fmt.Errorf("account %s: %w", addr, modular.ErrAccountNotFound)
	}
	if code, isContract := e.code[addr]; isContract {
		h := types.HashBytes(code)
		state.CodeHash = &h
	}
	return state, nil
}

// SetAccountState writes an account's materialized state. Used by
// processors and genesis setup.
func (e *Engine) SetAccountState(addr types.Address, state types.AccountState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.accounts[addr] = state
}

// DeployContract stores bytecode for a contract account.
func (e *Engine) DeployContract(addr types.Address, bytecode []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.accounts[addr]; !ok {
		e.accounts[addr] = types.AccountState{}
	}
	e.code[addr] = bytecode
}
