// Package transfer is an example Processor implementation: a balance
// ledger with per-account nonces. It shows how to plug domain
// transaction semantics into the execution layer without touching
// the layer itself.
package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/PolyTorus/polytorus-sub000/execution"
	"github.com/PolyTorus/polytorus-sub000/types"
)

var _ execution.Processor = (*Ledger)(nil)

// Ledger processes value transfers against in-memory balances.
// Rejected transfers still produce a receipt, with Success false and
// the reason in Info, so every transaction leaves a trace in the
// state root.
type Ledger struct {
	mu       sync.Mutex
	balances map[types.Address]uint64
	nonces   map[types.Address]uint64
}

// NewLedger creates a ledger with the given genesis balances.
func NewLedger(genesis map[types.Address]uint64) *Ledger {
	balances := make(map[types.Address]uint64, len(genesis))
	for addr, amount := range genesis {
		balances[addr] = amount
	}
	return &Ledger{
		balances: balances,
		nonces:   make(map[types.Address]uint64),
	}
}

// Process applies one transfer. Gas follows the default schedule:
// base cost plus payload bytes.
func (l *Ledger) Process(_ context.Context, tx types.Transaction) (types.TransactionReceipt, error) {
	gas := uint64(execution.BaseGas) + execution.PayloadGasPerByte*uint64(len(tx.Payload))
	receipt := types.TransactionReceipt{
		TxHash:  tx.Hash(),
		GasUsed: gas,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.Nonce != l.nonces[tx.From]+1 {
		receipt.Info = fmt.Sprintf("bad nonce %d, expected %d", tx.Nonce, l.nonces[tx.From]+1)
		return receipt, nil
	}
	if l.balances[tx.From] < tx.Amount {
		receipt.Info = fmt.Sprintf("insufficient balance %d for transfer of %d", l.balances[tx.From], tx.Amount)
		return receipt, nil
	}

	l.balances[tx.From] -= tx.Amount
	l.balances[tx.To] += tx.Amount
	l.nonces[tx.From] = tx.Nonce
	receipt.Success = true
	return receipt, nil
}

// Balance reads an account balance. Unknown accounts have balance 0.
func (l *Ledger) Balance(addr types.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// Nonce reads the last applied nonce for an account.
func (l *Ledger) Nonce(addr types.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nonces[addr]
}
