// Package settlement implements the optimistic-rollup settlement
// layer.
//
// Batches are accepted provisionally: SettleBatch records the batch
// as pending and commits a SettlementResult to the append-only
// history immediately. A batch leaves the pending/settled sets only
// through a successful fraud-proof challenge, which removes it from
// both and applies a fixed penalty.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Compile-time interface check.
var _ modular.SettlementLayer = (*Rollup)(nil)

const (
	// challengePenalty is the fixed penalty applied on a successful
	// challenge. Placeholder economic parameter.
	challengePenalty uint64 = 1000

	// blockTime is the assumed wall-clock duration of one block when
	// converting the challenge period from blocks to time. The
	// formula silently drifts if block time is configured differently
	// elsewhere; it is kept as-is for compatibility.
	blockTime = 12 * time.Second
)

// Config holds the settlement layer configuration.
type Config struct {
	// ChallengePeriod is the dispute window, in blocks.
	ChallengePeriod uint64
}

// DefaultConfig returns the settlement configuration used when none
// is supplied.
func DefaultConfig() *Config {
	return &Config{ChallengePeriod: 100}
}

// Rollup is the optimistic-rollup settlement layer. All settlement
// state is guarded by one lock held only for the duration of each
// operation; in particular the lock is never held across the
// re-execution call into the execution layer.
type Rollup struct {
	mu sync.RWMutex

	cfg *Config

	pending map[types.Hash]*types.ExecutionBatch
	settled map[types.Hash]*types.ExecutionBatch

	root    types.Hash
	history []types.SettlementResult

	// Audit log: every processed challenge and its terminal result,
	// regardless of outcome.
	challenges map[string]*types.SettlementChallenge
	results    map[string]types.ChallengeResult

	// Optional: enables authoritative fraud-proof verification by
	// re-execution. Nil selects the structural heuristic.
	exec modular.ExecutionLayer
}

// NewRollup creates a settlement layer without an attached execution
// layer; fraud proofs are verified by the structural heuristic until
// AttachExecution is called.
func NewRollup(cfg *Config) *Rollup {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Rollup{
		cfg:        cfg,
		pending:    make(map[types.Hash]*types.ExecutionBatch),
		settled:    make(map[types.Hash]*types.ExecutionBatch),
		challenges: make(map[string]*types.SettlementChallenge),
		results:    make(map[string]types.ChallengeResult),
	}
}

// AttachExecution switches fraud-proof verification to authoritative
// re-execution through the given execution layer.
func (r *Rollup) AttachExecution(exec modular.ExecutionLayer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exec = exec
}

// SettleBatch verifies batch integrity, records the batch as pending,
// recomputes the settlement root over all pending batches and appends
// a SettlementResult to the history.
//
// The result is committed to history immediately rather than after
// the challenge period elapses. This deviates from the documented
// optimistic-rollup intent and is preserved for compatibility.
func (r *Rollup) SettleBatch(_ context.Context, batch *types.ExecutionBatch) (types.SettlementResult, error) {
	if err := verifyIntegrity(batch); err != nil {
		return types.SettlementResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b := *batch
	r.pending[batch.BatchID] = &b

	ids := make([]types.Hash, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	r.root = CalculateSettlementRoot(ids)

	result := types.SettlementResult{
		SettlementRoot: r.root,
		SettledBatches: sortedIDs(ids),
		Timestamp:      uint64(time.Now().Unix()),
	}
	r.history = append(r.history, result)

	slog.Info("batch settled", "batch", batch.BatchID, "pending", len(r.pending), "root", r.root)
	return result, nil
}

// verifyIntegrity enforces the batch invariants: matching
// transaction/result counts, and a non-empty batch must move the
// state root.
func verifyIntegrity(batch *types.ExecutionBatch) error {
	if len(batch.Transactions) != len(batch.Results) {
		return &modular.IntegrityError{
			BatchID: batch.BatchID.String(),
			Reason:  fmt.Sprintf("%d transactions but %d results", len(batch.Transactions), len(batch.Results)),
		}
	}
	if len(batch.Transactions) > 0 && batch.PrevStateRoot == batch.NewStateRoot {
		return &modular.IntegrityError{
			BatchID: batch.BatchID.String(),
			Reason:  "non-empty batch does not change the state root",
		}
	}
	return nil
}

// CalculateSettlementRoot folds a set of batch ids into a single
// root. Pure function of the id set: ids are sorted before hashing so
// map iteration order cannot leak into the result.
func CalculateSettlementRoot(ids []types.Hash) types.Hash {
	sorted := sortedIDs(ids)
	buf := make([]byte, 0, len(sorted)*types.HashSize)
	for _, id := range sorted {
		buf = append(buf, id[:]...)
	}
	return types.HashBytes(buf)
}

func sortedIDs(ids []types.Hash) []types.Hash {
	sorted := make([]types.Hash, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Hex() < sorted[j].Hex()
	})
	return sorted
}

// SettlementRoot returns the current settlement root.
func (r *Rollup) SettlementRoot(_ context.Context) (types.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root, nil
}

// SettlementHistory returns the most recent limit entries, oldest of
// the returned slice first.
func (r *Rollup) SettlementHistory(_ context.Context, limit int) ([]types.SettlementResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]types.SettlementResult, limit)
	copy(out, r.history[len(r.history)-limit:])
	return out, nil
}

// ChallengePeriodExpired reports whether the dispute window for a
// challenge created at ts (unix seconds) has passed, assuming a fixed
// 12-second block time.
func (r *Rollup) ChallengePeriodExpired(ts uint64) bool {
	deadline := time.Unix(int64(ts), 0).Add(time.Duration(r.cfg.ChallengePeriod) * blockTime)
	return time.Now().After(deadline)
}
