package consensus

// Config holds the PoW consensus layer configuration.
type Config struct {
	// Difficulty is the number of leading zero hex characters the
	// block hash must have.
	Difficulty uint32

	// IsValidator marks this node as allowed to propose blocks.
	IsValidator bool

	// MinStake is the minimum stake accepted for a new validator.
	MinStake uint64
}

// DefaultConfig returns the consensus configuration used when none is
// supplied.
func DefaultConfig() *Config {
	return &Config{
		Difficulty:  4,
		IsValidator: true,
		MinStake:    1,
	}
}
