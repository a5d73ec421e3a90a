package types

// ExecutionBatch groups transactions with their execution results for
// settlement. Invariant: len(Transactions) == len(Results), and a
// non-empty batch must move the state root.
type ExecutionBatch struct {
	BatchID       Hash                 `cramberry:"1"`
	Transactions  []Transaction        `cramberry:"2"`
	Results       []TransactionReceipt `cramberry:"3"`
	PrevStateRoot Hash                 `cramberry:"4"`
	NewStateRoot  Hash                 `cramberry:"5"`
}

// SettlementResult is one entry of the append-only settlement history.
// Never mutated after creation.
type SettlementResult struct {
	SettlementRoot Hash   `cramberry:"1"`
	SettledBatches []Hash `cramberry:"2"`
	Timestamp      uint64 `cramberry:"3"`
}

// FraudProof is evidence that a batch's claimed state root is wrong.
// Validity depends on re-execution through the execution layer when
// one is attached.
type FraudProof struct {
	BatchID           Hash   `cramberry:"1"`
	ProofData         []byte `cramberry:"2"`
	ExpectedStateRoot Hash   `cramberry:"3"`
	ActualStateRoot   Hash   `cramberry:"4"`
}

// SettlementChallenge disputes a batch inside the challenge period.
type SettlementChallenge struct {
	ChallengeID string     `cramberry:"1"`
	BatchID     Hash       `cramberry:"2"`
	Proof       FraudProof `cramberry:"3"`
	Challenger  Address    `cramberry:"4"`
	Timestamp   uint64     `cramberry:"5"`
}

// ChallengeResult is the terminal record of a processed challenge,
// immutable once produced. Penalty is nil for failed challenges.
type ChallengeResult struct {
	ChallengeID string  `cramberry:"1"`
	Successful  bool    `cramberry:"2"`
	Penalty     *uint64 `cramberry:"3"`
	Timestamp   uint64  `cramberry:"4"`
}

// AvailabilityProof attests that a blob of data is retrievable from
// the data availability layer.
type AvailabilityProof struct {
	DataHash  Hash   `cramberry:"1"`
	Height    uint64 `cramberry:"2"`
	Proof     []byte `cramberry:"3"`
	Timestamp uint64 `cramberry:"4"`
}
