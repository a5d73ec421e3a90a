package execgrpc

import "github.com/PolyTorus/polytorus-sub000/types"

// Transport-specific wrapper types for RPC methods whose interface
// signatures don't map to a single request/response struct. These
// are used only at the gRPC serialization boundary.

// StateRootRequest is the (empty) request for StateRoot and
// CommitExecution.
type StateRootRequest struct{}

// StateRootResponse wraps a state root return value.
type StateRootResponse struct {
	Root types.Hash `cramberry:"1"`
}

// VerifyExecutionResponse wraps the boolean verdict of
// VerifyExecution.
type VerifyExecutionResponse struct {
	Valid bool `cramberry:"1"`
}

// AccountStateRequest wraps the address parameter of AccountState.
type AccountStateRequest struct {
	Address types.Address `cramberry:"1"`
}

// ContextRequest is the (empty) request for BeginExecution and
// RollbackExecution.
type ContextRequest struct{}

// ContextResponse is the (empty) acknowledgement for BeginExecution
// and RollbackExecution.
type ContextResponse struct{}
