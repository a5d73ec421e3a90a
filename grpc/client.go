package execgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

var _ modular.ExecutionLayer = (*Client)(nil)

// Client implements ExecutionLayer against a remote execution
// service. Protocol errors cross the wire as status codes and come
// back out as the same sentinel and typed errors a local layer
// returns.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote execution service. Without explicit
// credentials the connection is plaintext.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("execution client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) ExecuteBlock(ctx context.Context, block *types.Block) (types.ExecutionResult, error) {
	resp := new(types.ExecutionResult)
	if err := c.cc.Invoke(ctx, fullMethod("ExecuteBlock"), block, resp); err != nil {
		return types.ExecutionResult{}, errorFromStatus(err)
	}
	return *resp, nil
}

func (c *Client) ExecuteTransaction(ctx context.Context, tx types.Transaction) (types.TransactionReceipt, error) {
	resp := new(types.TransactionReceipt)
	if err := c.cc.Invoke(ctx, fullMethod("ExecuteTransaction"), &tx, resp); err != nil {
		return types.TransactionReceipt{}, errorFromStatus(err)
	}
	return *resp, nil
}

func (c *Client) StateRoot(ctx context.Context) (types.Hash, error) {
	req := &StateRootRequest{}
	resp := new(StateRootResponse)
	if err := c.cc.Invoke(ctx, fullMethod("StateRoot"), req, resp); err != nil {
		return types.Hash{}, errorFromStatus(err)
	}
	return resp.Root, nil
}

func (c *Client) VerifyExecution(ctx context.Context, batch *types.ExecutionBatch) (bool, error) {
	resp := new(VerifyExecutionResponse)
	if err := c.cc.Invoke(ctx, fullMethod("VerifyExecution"), batch, resp); err != nil {
		return false, errorFromStatus(err)
	}
	return resp.Valid, nil
}

func (c *Client) AccountState(ctx context.Context, addr types.Address) (types.AccountState, error) {
	req := &AccountStateRequest{Address: addr}
	resp := new(types.AccountState)
	if err := c.cc.Invoke(ctx, fullMethod("AccountState"), req, resp); err != nil {
		return types.AccountState{}, errorFromStatus(err)
	}
	return *resp, nil
}

func (c *Client) BeginExecution(ctx context.Context) error {
	req := &ContextRequest{}
	resp := new(ContextResponse)
	if err := c.cc.Invoke(ctx, fullMethod("BeginExecution"), req, resp); err != nil {
		return errorFromStatus(err)
	}
	return nil
}

func (c *Client) CommitExecution(ctx context.Context) (types.Hash, error) {
	req := &StateRootRequest{}
	resp := new(StateRootResponse)
	if err := c.cc.Invoke(ctx, fullMethod("CommitExecution"), req, resp); err != nil {
		return types.Hash{}, errorFromStatus(err)
	}
	return resp.Root, nil
}

func (c *Client) RollbackExecution(ctx context.Context) error {
	req := &ContextRequest{}
	resp := new(ContextResponse)
	if err := c.cc.Invoke(ctx, fullMethod("RollbackExecution"), req, resp); err != nil {
		return errorFromStatus(err)
	}
	return nil
}
