// Package modtest provides test utilities for layer development:
// configurable layer mocks, an orchestrator harness, and compliance
// suites that encode the behavioral contract of each layer
// interface.
package modtest

import (
	"context"
	"sync"
	"sync/atomic"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Compile-time checks that the mocks satisfy their interfaces.
var (
	_ modular.ConsensusLayer        = (*MockConsensus)(nil)
	_ modular.ExecutionLayer        = (*MockExecution)(nil)
	_ modular.SettlementLayer       = (*MockSettlement)(nil)
	_ modular.DataAvailabilityLayer = (*MockDA)(nil)
)

// MockConsensus is a configurable consensus layer. All methods are
// overridable via function fields; unconfigured methods fall back to
// a minimal in-memory chain that accepts every block.
type MockConsensus struct {
	mu    sync.Mutex
	chain []types.Block

	ProposeBlockFn  func(context.Context, *types.Block) error
	ValidateBlockFn func(context.Context, *types.Block) bool
	AddBlockFn      func(context.Context, *types.Block) error
	IsValidatorFn   func(context.Context) bool
	ValidatorSetFn  func(context.Context) ([]types.ValidatorInfo, error)

	ValidateCalls atomic.Int64
	AddCalls      atomic.Int64
}

func (m *MockConsensus) ProposeBlock(ctx context.Context, block *types.Block) error {
	if m.ProposeBlockFn != nil {
		return m.ProposeBlockFn(ctx, block)
	}
	return m.AddBlock(ctx, block)
}

func (m *MockConsensus) ValidateBlock(ctx context.Context, block *types.Block) bool {
	m.ValidateCalls.Add(1)
	if m.ValidateBlockFn != nil {
		return m.ValidateBlockFn(ctx, block)
	}
	return true
}

func (m *MockConsensus) AddBlock(ctx context.Context, block *types.Block) error {
	m.AddCalls.Add(1)
	if m.AddBlockFn != nil {
		return m.AddBlockFn(ctx, block)
	}
	m.mu.Lock()
	m.chain = append(m.chain, *block)
	m.mu.Unlock()
	return nil
}

func (m *MockConsensus) CanonicalChain(context.Context) ([]types.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Block, len(m.chain))
	copy(out, m.chain)
	return out, nil
}

func (m *MockConsensus) BlockHeight(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chain) == 0 {
		return 0, nil
	}
	return uint64(m.chain[len(m.chain)-1].Height), nil
}

func (m *MockConsensus) BlockByHash(_ context.Context, hash types.Hash) (*types.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.chain {
		if m.chain[i].Hash.Equal(hash) {
			b := m.chain[i]
			return &b, nil
		}
	}
	return nil, modular.ErrBlockNotFound
}

func (m *MockConsensus) IsValidator(ctx context.Context) bool {
	if m.IsValidatorFn != nil {
		return m.IsValidatorFn(ctx)
	}
	return true
}

func (m *MockConsensus) ValidatorSet(ctx context.Context) ([]types.ValidatorInfo, error) {
	if m.ValidatorSetFn != nil {
		return m.ValidatorSetFn(ctx)
	}
	return nil, nil
}

// MockExecution is a configurable execution layer. The default
// behavior folds receipts into a running state root with the same
// fold the real engine uses, so mocks and real layers agree on
// roots.
type MockExecution struct {
	mu   sync.Mutex
	root types.Hash
	open bool
	buf  []types.TransactionReceipt

	ExecuteBlockFn    func(context.Context, *types.Block) (types.ExecutionResult, error)
	ExecuteTxFn       func(context.Context, types.Transaction) (types.TransactionReceipt, error)
	VerifyExecutionFn func(context.Context, *types.ExecutionBatch) (bool, error)
	AccountStateFn    func(context.Context, types.Address) (types.AccountState, error)

	ExecuteBlockCalls atomic.Int64
	ExecuteTxCalls    atomic.Int64
}

func defaultReceipt(tx types.Transaction) types.TransactionReceipt {
	return types.TransactionReceipt{
		TxHash:  tx.Hash(),
		Success: true,
		GasUsed: 21000,
	}
}

func (m *MockExecution) ExecuteBlock(ctx context.Context, block *types.Block) (types.ExecutionResult, error) {
	m.ExecuteBlockCalls.Add(1)
	if m.ExecuteBlockFn != nil {
		return m.ExecuteBlockFn(ctx, block)
	}
	receipts := make([]types.TransactionReceipt, len(block.Transactions))
	var gas uint64
	for i, tx := range block.Transactions {
		receipts[i] = defaultReceipt(tx)
		gas += receipts[i].GasUsed
	}
	m.mu.Lock()
	m.root = types.FoldStateRoot(m.root, receipts)
	root := m.root
	m.mu.Unlock()
	return types.ExecutionResult{StateRoot: root, GasUsed: gas, Receipts: receipts}, nil
}

func (m *MockExecution) ExecuteTransaction(ctx context.Context, tx types.Transaction) (types.TransactionReceipt, error) {
	m.ExecuteTxCalls.Add(1)
	if m.ExecuteTxFn != nil {
		return m.ExecuteTxFn(ctx, tx)
	}
	receipt := defaultReceipt(tx)
	m.mu.Lock()
	if m.open {
		m.buf = append(m.buf, receipt)
	}
	m.mu.Unlock()
	return receipt, nil
}

func (m *MockExecution) StateRoot(context.Context) (types.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root, nil
}

func (m *MockExecution) VerifyExecution(ctx context.Context, batch *types.ExecutionBatch) (bool, error) {
	if m.VerifyExecutionFn != nil {
		return m.VerifyExecutionFn(ctx, batch)
	}
	return types.FoldStateRoot(batch.PrevStateRoot, batch.Results).Equal(batch.NewStateRoot), nil
}

func (m *MockExecution) AccountState(ctx context.Context, addr types.Address) (types.AccountState, error) {
	if m.AccountStateFn != nil {
		return m.AccountStateFn(ctx, addr)
	}
	return types.AccountState{}, modular.ErrAccountNotFound
}

func (m *MockExecution) BeginExecution(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return modular.ErrContextActive
	}
	m.open = true
	m.buf = nil
	return nil
}

func (m *MockExecution) CommitExecution(context.Context) (types.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return types.Hash{}, modular.ErrNoActiveContext
	}
	m.root = types.FoldStateRoot(m.root, m.buf)
	m.open = false
	m.buf = nil
	return m.root, nil
}

func (m *MockExecution) RollbackExecution(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return modular.ErrNoActiveContext
	}
	m.open = false
	m.buf = nil
	return nil
}

// MockSettlement is a configurable settlement layer. The default
// accepts every batch and remembers it.
type MockSettlement struct {
	mu      sync.Mutex
	batches map[types.Hash]*types.ExecutionBatch
	root    types.Hash
	history []types.SettlementResult

	SettleBatchFn      func(context.Context, *types.ExecutionBatch) (types.SettlementResult, error)
	VerifyFraudProofFn func(context.Context, *types.FraudProof) bool
	ProcessChallengeFn func(context.Context, *types.SettlementChallenge) (types.ChallengeResult, error)

	SettleCalls    atomic.Int64
	ChallengeCalls atomic.Int64
}

func (m *MockSettlement) SettleBatch(ctx context.Context, batch *types.ExecutionBatch) (types.SettlementResult, error) {
	m.SettleCalls.Add(1)
	if m.SettleBatchFn != nil {
		return m.SettleBatchFn(ctx, batch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batches == nil {
		m.batches = make(map[types.Hash]*types.ExecutionBatch)
	}
	m.batches[batch.BatchID] = batch
	m.root = types.HashBytes(batch.BatchID[:])
	result := types.SettlementResult{
		SettlementRoot: m.root,
		SettledBatches: []types.Hash{batch.BatchID},
	}
	m.history = append(m.history, result)
	return result, nil
}

func (m *MockSettlement) VerifyFraudProof(ctx context.Context, proof *types.FraudProof) bool {
	if m.VerifyFraudProofFn != nil {
		return m.VerifyFraudProofFn(ctx, proof)
	}
	return false
}

func (m *MockSettlement) SettlementRoot(context.Context) (types.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root, nil
}

func (m *MockSettlement) ProcessChallenge(ctx context.Context, challenge *types.SettlementChallenge) (types.ChallengeResult, error) {
	m.ChallengeCalls.Add(1)
	if m.ProcessChallengeFn != nil {
		return m.ProcessChallengeFn(ctx, challenge)
	}
	return types.ChallengeResult{ChallengeID: challenge.ChallengeID}, nil
}

func (m *MockSettlement) SettlementHistory(_ context.Context, limit int) ([]types.SettlementResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]types.SettlementResult, limit)
	copy(out, m.history[len(m.history)-limit:])
	return out, nil
}

// MockDA is a configurable data availability layer backed by a map.
type MockDA struct {
	mu    sync.Mutex
	blobs map[types.Hash][]byte

	StoreDataFn func(context.Context, []byte) (types.Hash, error)

	StoreCalls atomic.Int64
}

func (m *MockDA) StoreData(ctx context.Context, data []byte) (types.Hash, error) {
	m.StoreCalls.Add(1)
	if m.StoreDataFn != nil {
		return m.StoreDataFn(ctx, data)
	}
	hash := types.HashBytes(data)
	m.mu.Lock()
	if m.blobs == nil {
		m.blobs = make(map[types.Hash][]byte)
	}
	m.blobs[hash] = append([]byte(nil), data...)
	m.mu.Unlock()
	return hash, nil
}

func (m *MockDA) RetrieveData(_ context.Context, hash types.Hash) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[hash]
	if !ok {
		return nil, modular.ErrDataNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (m *MockDA) VerifyAvailability(_ context.Context, hash types.Hash) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[hash]
	return ok, nil
}

func (m *MockDA) BroadcastData(context.Context, types.Hash) error { return nil }

func (m *MockDA) RequestData(ctx context.Context, hash types.Hash) ([]byte, error) {
	return m.RetrieveData(ctx, hash)
}

func (m *MockDA) AvailabilityProof(_ context.Context, hash types.Hash) (types.AvailabilityProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[hash]; !ok {
		return types.AvailabilityProof{}, modular.ErrDataNotFound
	}
	return types.AvailabilityProof{DataHash: hash}, nil
}
