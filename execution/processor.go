package execution

import (
	"context"

	"github.com/PolyTorus/polytorus-sub000/types"
)

// Gas cost constants for the default processor.
const (
	// BaseGas is charged for every transaction.
	BaseGas = 21000
	// PayloadGasPerByte is charged per payload byte.
	PayloadGasPerByte = 16
)

// Processor turns a transaction into a receipt. The execution layer
// never interprets transactions itself; the processor is the injected
// contract/transfer engine.
//
// Process must be deterministic: the same transaction always yields
// the same receipt, or the state root fold is not reproducible.
type Processor interface {
	Process(ctx context.Context, tx types.Transaction) (types.TransactionReceipt, error)
}

// HashProcessor is the default processor. It accepts every
// transaction, derives the receipt purely from the transaction's
// content and charges gas by payload size.
type HashProcessor struct{}

func (HashProcessor) Process(_ context.Context, tx types.Transaction) (types.TransactionReceipt, error) {
	return types.TransactionReceipt{
		TxHash:  tx.Hash(),
		Success: true,
		GasUsed: BaseGas + PayloadGasPerByte*uint64(len(tx.Payload)),
	}, nil
}
