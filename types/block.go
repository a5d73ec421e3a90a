package types

import "context"

// Transaction is a transfer or contract call carried in a block.
// The runtime treats the payload as opaque; the execution layer's
// injected processor gives it meaning.
type Transaction struct {
	From    Address `cramberry:"1"`
	To      Address `cramberry:"2"`
	Amount  uint64  `cramberry:"3"`
	Nonce   uint64  `cramberry:"4"`
	Payload []byte  `cramberry:"5"`
}

// Hash returns the transaction's content hash.
func (tx Transaction) Hash() Hash {
	return HashOf(tx)
}

// Block is a unit of the canonical chain. A block is built, mined,
// validated and finalized in that order; Hash is only meaningful
// after Seal or Mine.
type Block struct {
	Height       int64         `cramberry:"1"`
	Hash         Hash          `cramberry:"2"`
	PrevHash     Hash          `cramberry:"3"`
	Nonce        uint64        `cramberry:"4"`
	Timestamp    uint64        `cramberry:"5"`
	Difficulty   uint32        `cramberry:"6"`
	Transactions []Transaction `cramberry:"7"`
}

// HeaderHash computes the block's content hash over every field
// except Hash itself.
func (b *Block) HeaderHash() Hash {
	header := *b
	header.Hash = Hash{}
	return HashOf(header)
}

// Seal sets the block's hash from its current contents.
func (b *Block) Seal() {
	b.Hash = b.HeaderHash()
}

// Mine searches for a nonce whose header hash meets the block's
// difficulty, then seals the block. The context is checked
// periodically so a caller racing the miner against a timer can give
// up; a block abandoned mid-mine is left unsealed.
func (b *Block) Mine(ctx context.Context) error {
	const checkInterval = 4096
	for i := 0; ; i++ {
		if i%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		h := b.HeaderHash()
		if h.MeetsDifficulty(b.Difficulty) {
			b.Hash = h
			return nil
		}
		b.Nonce++
	}
}

// TransactionReceipt records the outcome of executing one transaction.
type TransactionReceipt struct {
	TxHash  Hash   `cramberry:"1"`
	Success bool   `cramberry:"2"`
	GasUsed uint64 `cramberry:"3"`
	Output  []byte `cramberry:"4"`
	Info    string `cramberry:"5"`
}

// Hash returns the receipt's content hash.
func (r TransactionReceipt) Hash() Hash {
	return HashOf(r)
}

// ExecutionResult is the output of executing one block's transactions.
type ExecutionResult struct {
	StateRoot Hash                 `cramberry:"1"`
	GasUsed   uint64               `cramberry:"2"`
	Receipts  []TransactionReceipt `cramberry:"3"`
}

// AccountState is the materialized state of one account. Owned and
// mutated exclusively by the execution layer. CodeHash and
// StorageRoot are nil for plain accounts.
type AccountState struct {
	Balance     uint64 `cramberry:"1"`
	Nonce       uint64 `cramberry:"2"`
	CodeHash    *Hash  `cramberry:"3"`
	StorageRoot *Hash  `cramberry:"4"`
}

// IsContract reports whether the account holds deployed code.
func (a AccountState) IsContract() bool {
	return a.CodeHash != nil
}
