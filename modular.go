// Package modular defines the layer boundaries of the PolyTorus
// modular runtime — a blockchain whose ledger responsibilities are
// split into independently pluggable layers: consensus, execution,
// settlement and data availability.
//
// Concrete layers live in their own packages (consensus, execution,
// settlement, da) and are coordinated by the orchestrator package
// over the typed message bus in bus. Each interface here is a strict
// capability boundary: callers hold the interface, never the
// concrete type, so any layer can be swapped for a remote or mock
// implementation.
package modular

import (
	"context"

	"github.com/PolyTorus/polytorus-sub000/types"
)

// ConsensusLayer validates and extends the canonical block chain.
// It owns the chain height and tip.
//
// Accepting a block B requires B.Height == height(tip)+1 and
// B.PrevHash == hash(tip); an empty chain accepts only a block whose
// PrevHash is empty.
type ConsensusLayer interface {
	// ProposeBlock validates and appends a block on behalf of this
	// node. Fails with ErrNotValidator if the node is not configured
	// as a validator, and with a ValidationError if the block does
	// not extend the chain.
	ProposeBlock(ctx context.Context, block *types.Block) error

	// ValidateBlock reports whether the block would be accepted.
	// It never mutates the chain.
	ValidateBlock(ctx context.Context, block *types.Block) bool

	// AddBlock validates and appends a block received from a
	// non-proposing path (sync, gossip).
	AddBlock(ctx context.Context, block *types.Block) error

	// CanonicalChain returns a copy of the accepted chain, genesis
	// first.
	CanonicalChain(ctx context.Context) ([]types.Block, error)

	// BlockHeight returns the height of the tip, or 0 for an empty
	// chain.
	BlockHeight(ctx context.Context) (uint64, error)

	// BlockByHash looks up an accepted block.
	BlockByHash(ctx context.Context, hash types.Hash) (*types.Block, error)

	// IsValidator reports whether this node may propose blocks.
	IsValidator(ctx context.Context) bool

	// ValidatorSet returns a copy of the current validator set.
	ValidatorSet(ctx context.Context) ([]types.ValidatorInfo, error)
}

// ExecutionLayer executes transaction batches against account and
// contract state, producing receipts and a new state root.
//
// The layer supports an explicit single-slot execution context:
// BeginExecution opens it, CommitExecution folds the buffered
// receipts into a new committed state root, RollbackExecution
// discards them. Contexts are not nestable.
type ExecutionLayer interface {
	// ExecuteBlock executes every transaction in the block through
	// the injected processor and returns the receipts plus the state
	// root they fold to. Fails with a GasLimitExceededError the
	// moment cumulative gas crosses the configured limit; the block
	// is rejected wholesale, never partially applied.
	ExecuteBlock(ctx context.Context, block *types.Block) (types.ExecutionResult, error)

	// ExecuteTransaction is the single-transaction variant of the
	// same accounting. It never advances the committed state root;
	// with an open execution context it buffers the receipt there.
	ExecuteTransaction(ctx context.Context, tx types.Transaction) (types.TransactionReceipt, error)

	// StateRoot returns the committed state root.
	StateRoot(ctx context.Context) (types.Hash, error)

	// VerifyExecution re-executes a batch from its previous state
	// root and reports whether the claimed new root is reproduced.
	VerifyExecution(ctx context.Context, batch *types.ExecutionBatch) (bool, error)

	// AccountState reads the materialized state of one account.
	AccountState(ctx context.Context, addr types.Address) (types.AccountState, error)

	// BeginExecution opens the execution context. Fails with
	// ErrContextActive if one is already open.
	BeginExecution(ctx context.Context) error

	// CommitExecution folds the context's buffered receipts into a
	// new committed state root, clears the slot and returns the
	// root. Fails with ErrNoActiveContext if no context is open.
	CommitExecution(ctx context.Context) (types.Hash, error)

	// RollbackExecution discards the open context without touching
	// the committed state root.
	RollbackExecution(ctx context.Context) error
}

// SettlementLayer accepts execution batches for optimistic
// settlement, verifies fraud proofs and resolves challenges.
//
// A batch is in exactly one of four states: absent, pending, settled,
// or removed by a successful challenge. A successful challenge
// removes the batch from both the pending and settled sets
// atomically.
type SettlementLayer interface {
	// SettleBatch verifies batch integrity, records the batch as
	// pending, recomputes the settlement root and appends a
	// SettlementResult to the history.
	SettleBatch(ctx context.Context, batch *types.ExecutionBatch) (types.SettlementResult, error)

	// VerifyFraudProof checks a fraud proof. With an attached
	// execution layer the disputed batch is re-executed to obtain an
	// authoritative root; without one a weak structural heuristic is
	// applied.
	VerifyFraudProof(ctx context.Context, proof *types.FraudProof) bool

	// SettlementRoot returns the current settlement root.
	SettlementRoot(ctx context.Context) (types.Hash, error)

	// ProcessChallenge verifies the challenge's fraud proof and, on
	// success, applies the penalty and removes the disputed batch.
	// Every challenge is recorded for audit regardless of outcome.
	ProcessChallenge(ctx context.Context, challenge *types.SettlementChallenge) (types.ChallengeResult, error)

	// SettlementHistory returns the most recent limit history
	// entries in chronological order, oldest first.
	SettlementHistory(ctx context.Context, limit int) ([]types.SettlementResult, error)
}

// DataAvailabilityLayer stores and serves block data so that anyone
// can reconstruct the chain. Consumed by the orchestrator; the
// shipped implementation is in-process (package da).
type DataAvailabilityLayer interface {
	// StoreData stores a blob and returns its content hash.
	StoreData(ctx context.Context, data []byte) (types.Hash, error)

	// RetrieveData fetches a blob by content hash.
	RetrieveData(ctx context.Context, hash types.Hash) ([]byte, error)

	// VerifyAvailability reports whether a blob is retrievable.
	VerifyAvailability(ctx context.Context, hash types.Hash) (bool, error)

	// BroadcastData announces a stored blob to peers.
	BroadcastData(ctx context.Context, hash types.Hash) error

	// RequestData fetches a blob, asking peers if it is not held
	// locally.
	RequestData(ctx context.Context, hash types.Hash) ([]byte, error)

	// AvailabilityProof produces an attestation that a blob is
	// retrievable.
	AvailabilityProof(ctx context.Context, hash types.Hash) (types.AvailabilityProof, error)
}
