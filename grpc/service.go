package execgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/PolyTorus/polytorus-sub000/types"
)

const serviceName = "polytorus.v1.ExecutionService"

// ExecutionServiceServer is the server-side interface for the
// execution gRPC service. It mirrors ExecutionLayer with wire-level
// request and response types.
type ExecutionServiceServer interface {
	ExecuteBlock(context.Context, *types.Block) (*types.ExecutionResult, error)
	ExecuteTransaction(context.Context, *types.Transaction) (*types.TransactionReceipt, error)
	StateRoot(context.Context, *StateRootRequest) (*StateRootResponse, error)
	VerifyExecution(context.Context, *types.ExecutionBatch) (*VerifyExecutionResponse, error)
	AccountState(context.Context, *AccountStateRequest) (*types.AccountState, error)
	BeginExecution(context.Context, *ContextRequest) (*ContextResponse, error)
	CommitExecution(context.Context, *StateRootRequest) (*StateRootResponse, error)
	RollbackExecution(context.Context, *ContextRequest) (*ContextResponse, error)
}

// RegisterExecutionServiceServer registers the service on a gRPC
// server.
func RegisterExecutionServiceServer(s *grpc.Server, srv ExecutionServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func handlerExecuteBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.Block)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).ExecuteBlock(ctx, req)
}

func handlerExecuteTransaction(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.Transaction)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).ExecuteTransaction(ctx, req)
}

func handlerStateRoot(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(StateRootRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).StateRoot(ctx, req)
}

func handlerVerifyExecution(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.ExecutionBatch)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).VerifyExecution(ctx, req)
}

func handlerAccountState(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(AccountStateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).AccountState(ctx, req)
}

func handlerBeginExecution(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(ContextRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).BeginExecution(ctx, req)
}

func handlerCommitExecution(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(StateRootRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).CommitExecution(ctx, req)
}

func handlerRollbackExecution(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(ContextRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(ExecutionServiceServer).RollbackExecution(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for the
// execution service.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExecutionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteBlock", Handler: handlerExecuteBlock},
		{MethodName: "ExecuteTransaction", Handler: handlerExecuteTransaction},
		{MethodName: "StateRoot", Handler: handlerStateRoot},
		{MethodName: "VerifyExecution", Handler: handlerVerifyExecution},
		{MethodName: "AccountState", Handler: handlerAccountState},
		{MethodName: "BeginExecution", Handler: handlerBeginExecution},
		{MethodName: "CommitExecution", Handler: handlerCommitExecution},
		{MethodName: "RollbackExecution", Handler: handlerRollbackExecution},
	},
	Metadata: "polytorus/v1/execution.cram",
}
