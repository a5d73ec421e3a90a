package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// VerifyFraudProof checks a fraud proof in one of two modes.
//
// Without an attached execution layer a weak structural heuristic
// applies: the proof is valid iff it carries data and claims a root
// change. It offers no cryptographic security and exists only so a
// settlement layer can run standalone.
//
// With an execution layer, the disputed batch is looked up in the
// pending set (settled batches cannot be re-verified) and re-executed
// to obtain an authoritative root:
//   - root == expected: the proof is valid iff it actually disputes
//     something (actual != expected);
//   - root == actual: the original execution was correct, proof
//     invalid;
//   - neither: inconclusive, proof rejected.
func (r *Rollup) VerifyFraudProof(ctx context.Context, proof *types.FraudProof) bool {
	r.mu.RLock()
	exec := r.exec
	var batch *types.ExecutionBatch
	if b, ok := r.pending[proof.BatchID]; ok {
		copied := *b
		batch = &copied
	}
	_, isSettled := r.settled[proof.BatchID]
	r.mu.RUnlock()

	if exec == nil {
		return len(proof.ProofData) > 0 && proof.ExpectedStateRoot != proof.ActualStateRoot
	}

	if batch == nil {
		if isSettled {
			slog.Warn("fraud proof targets settled batch, cannot re-verify", "batch", proof.BatchID)
		} else {
			slog.Warn("fraud proof targets unknown batch", "batch", proof.BatchID)
		}
		return false
	}

	// Re-verify outside any settlement lock: the execution layer is
	// another layer, and holding our lock across the call risks
	// cross-layer deadlock. VerifyExecution is a pure query on the
	// execution layer, so verification never buffers receipts into an
	// execution context the caller may have open.
	matchesExpected, err := replayAgainst(ctx, exec, batch, proof.ExpectedStateRoot)
	if err != nil {
		slog.Warn("fraud proof re-execution failed", "batch", proof.BatchID, "err", err)
		return false
	}
	if matchesExpected {
		return proof.ActualStateRoot != proof.ExpectedStateRoot
	}
	matchesActual, err := replayAgainst(ctx, exec, batch, proof.ActualStateRoot)
	if err != nil {
		slog.Warn("fraud proof re-execution failed", "batch", proof.BatchID, "err", err)
		return false
	}
	if matchesActual {
		return false
	}
	slog.Warn("fraud proof verification inconclusive",
		"batch", proof.BatchID,
		"expected", proof.ExpectedStateRoot, "actual", proof.ActualStateRoot)
	return false
}

// replayAgainst asks the execution layer whether re-executing the
// batch from its previous state root reproduces the claimed root.
func replayAgainst(ctx context.Context, exec modular.ExecutionLayer, batch *types.ExecutionBatch, claimed types.Hash) (bool, error) {
	candidate := *batch
	candidate.NewStateRoot = claimed
	return exec.VerifyExecution(ctx, &candidate)
}

// ProcessChallenge verifies the challenge's fraud proof and resolves
// it. On success the disputed batch is removed from both the pending
// and settled sets atomically and the fixed penalty is applied; on
// failure an unsuccessful result with no penalty is returned. The
// challenge is recorded for audit either way. A challenge whose proof
// names a different batch than the challenge itself is rejected, so a
// verified proof can only ever remove the batch it was checked
// against.
func (r *Rollup) ProcessChallenge(ctx context.Context, challenge *types.SettlementChallenge) (types.ChallengeResult, error) {
	if challenge.BatchID != challenge.Proof.BatchID {
		return types.ChallengeResult{}, &modular.IntegrityError{
			BatchID: challenge.BatchID.String(),
			Reason:  "challenge and proof dispute different batches",
		}
	}
	if challenge.ChallengeID == "" {
		challenge.ChallengeID = uuid.NewString()
	}

	r.mu.Lock()
	c := *challenge
	r.challenges[challenge.ChallengeID] = &c
	r.mu.Unlock()

	valid := r.VerifyFraudProof(ctx, &challenge.Proof)

	result := types.ChallengeResult{
		ChallengeID: challenge.ChallengeID,
		Successful:  valid,
		Timestamp:   uint64(time.Now().Unix()),
	}

	r.mu.Lock()
	if valid {
		delete(r.pending, challenge.BatchID)
		delete(r.settled, challenge.BatchID)
		penalty := challengePenalty
		result.Penalty = &penalty
		slog.Info("challenge succeeded, batch removed",
			"challenge", challenge.ChallengeID, "batch", challenge.BatchID, "penalty", penalty)
	} else {
		slog.Info("challenge rejected", "challenge", challenge.ChallengeID, "batch", challenge.BatchID)
	}
	r.results[challenge.ChallengeID] = result
	r.mu.Unlock()

	return result, nil
}

// ChallengeAudit returns the recorded challenge and its result, if
// the challenge has been processed.
func (r *Rollup) ChallengeAudit(id string) (*types.SettlementChallenge, *types.ChallengeResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.challenges[id]
	if !ok {
		return nil, nil, false
	}
	copied := *c
	res, hasResult := r.results[id]
	if !hasResult {
		return &copied, nil, true
	}
	return &copied, &res, true
}

// PendingBatch returns a copy of a pending batch, if present.
func (r *Rollup) PendingBatch(id types.Hash) (*types.ExecutionBatch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.pending[id]
	if !ok {
		return nil, false
	}
	copied := *b
	return &copied, true
}

// MarkSettled moves a batch from pending to settled once its
// challenge period has elapsed.
func (r *Rollup) MarkSettled(id types.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.pending[id]
	if !ok {
		return modular.ErrBatchNotFound
	}
	delete(r.pending, id)
	r.settled[id] = b
	return nil
}
