package execgrpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Server exposes a local ExecutionLayer to remote callers.
type Server struct {
	layer modular.ExecutionLayer
	gs    *grpc.Server
}

var _ ExecutionServiceServer = (*Server)(nil)

// NewServer wraps an execution layer for serving.
func NewServer(layer modular.ExecutionLayer, opts ...grpc.ServerOption) *Server {
	s := &Server{layer: layer}
	s.gs = grpc.NewServer(opts...)
	RegisterExecutionServiceServer(s.gs, s)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("execution service listening", "addr", lis.Addr().String())
	if err := s.gs.Serve(lis); err != nil {
		return fmt.Errorf("execution service: %w", err)
	}
	return nil
}

// Stop gracefully stops the server, draining in-flight RPCs.
func (s *Server) Stop() {
	s.gs.GracefulStop()
}

func (s *Server) ExecuteBlock(ctx context.Context, block *types.Block) (*types.ExecutionResult, error) {
	result, err := s.layer.ExecuteBlock(ctx, block)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &result, nil
}

func (s *Server) ExecuteTransaction(ctx context.Context, tx *types.Transaction) (*types.TransactionReceipt, error) {
	receipt, err := s.layer.ExecuteTransaction(ctx, *tx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &receipt, nil
}

func (s *Server) StateRoot(ctx context.Context, _ *StateRootRequest) (*StateRootResponse, error) {
	root, err := s.layer.StateRoot(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &StateRootResponse{Root: root}, nil
}

func (s *Server) VerifyExecution(ctx context.Context, batch *types.ExecutionBatch) (*VerifyExecutionResponse, error) {
	valid, err := s.layer.VerifyExecution(ctx, batch)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &VerifyExecutionResponse{Valid: valid}, nil
}

func (s *Server) AccountState(ctx context.Context, req *AccountStateRequest) (*types.AccountState, error) {
	state, err := s.layer.AccountState(ctx, req.Address)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &state, nil
}

func (s *Server) BeginExecution(ctx context.Context, _ *ContextRequest) (*ContextResponse, error) {
	if err := s.layer.BeginExecution(ctx); err != nil {
		return nil, statusFromError(err)
	}
	return &ContextResponse{}, nil
}

func (s *Server) CommitExecution(ctx context.Context, _ *StateRootRequest) (*StateRootResponse, error) {
	root, err := s.layer.CommitExecution(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &StateRootResponse{Root: root}, nil
}

func (s *Server) RollbackExecution(ctx context.Context, _ *ContextRequest) (*ContextResponse, error) {
	if err := s.layer.RollbackExecution(ctx); err != nil {
		return nil, statusFromError(err)
	}
	return &ContextResponse{}, nil
}
