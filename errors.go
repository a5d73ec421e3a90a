package modular

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers.
var (
	// ErrNotValidator is returned by ProposeBlock when the node is
	// not configured as a validator.
	ErrNotValidator = errors.New("node is not a validator")

	// ErrContextActive is returned by BeginExecution while another
	// execution context is open. The context is a single-slot
	// resource; opening a second one is a caller protocol violation.
	ErrContextActive = errors.New("execution context already active")

	// ErrNoActiveContext is returned by CommitExecution and
	// RollbackExecution when no execution context is open.
	ErrNoActiveContext = errors.New("no active execution context")

	// ErrNoChannelForType is returned by the bus when publishing a
	// message type nobody has subscribed to.
	ErrNoChannelForType = errors.New("no channel for message type")

	// ErrBatchNotFound is returned when a settlement batch id is
	// unknown.
	ErrBatchNotFound = errors.New("settlement batch not found")

	// ErrBlockNotFound is returned when a block hash is not on the
	// canonical chain.
	ErrBlockNotFound = errors.New("block not found")

	// ErrLayerNotFound is returned when a layer or layer
	// implementation is not registered.
	ErrLayerNotFound = errors.New("layer not found")

	// ErrAccountNotFound is returned for reads of unknown accounts.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDataNotFound is returned by the data availability layer for
	// unknown blobs.
	ErrDataNotFound = errors.New("data not found")

	// ErrAlreadyStarted and ErrNotRunning guard the orchestrator's
	// lifecycle transitions.
	ErrAlreadyStarted = errors.New("orchestrator already started")
	ErrNotRunning     = errors.New("orchestrator not running")
)

// ValidationError rejects a block whose structure, height or
// parentage is wrong. Recoverable: the block is simply not accepted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "block validation: " + e.Reason
}

// IsValidation checks whether an error is a ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IntegrityError refuses a settlement batch whose transaction and
// result counts disagree, or whose state transition is a no-op.
type IntegrityError struct {
	BatchID string
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("batch %s integrity: %s", e.BatchID, e.Reason)
}

// IsIntegrity checks whether an error is an IntegrityError.
func IsIntegrity(err error) (*IntegrityError, bool) {
	var i *IntegrityError
	if errors.As(err, &i) {
		return i, true
	}
	return nil, false
}

// GasLimitExceededError aborts block execution. No partial state is
// applied.
type GasLimitExceededError struct {
	GasUsed  uint64
	GasLimit uint64
}

func (e *GasLimitExceededError) Error() string {
	return fmt.Sprintf("gas limit exceeded: used %d of %d", e.GasUsed, e.GasLimit)
}

// IsGasLimitExceeded checks whether an error is a
// GasLimitExceededError.
func IsGasLimitExceeded(err error) (*GasLimitExceededError, bool) {
	var g *GasLimitExceededError
	if errors.As(err, &g) {
		return g, true
	}
	return nil, false
}

// ConfigurationError fails layer construction on missing or invalid
// configuration. Nothing is silently defaulted except where the
// config package documents a default.
type ConfigurationError struct {
	Layer  string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config %s: %s", e.Layer, e.Reason)
	}
	return fmt.Sprintf("config %s.%s: %s", e.Layer, e.Field, e.Reason)
}

// IsConfiguration checks whether an error is a ConfigurationError.
func IsConfiguration(err error) (*ConfigurationError, bool) {
	var c *ConfigurationError
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
