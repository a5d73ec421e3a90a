package execgrpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/execution"
	"github.com/PolyTorus/polytorus-sub000/types"
)

func startPair(t *testing.T) (*Client, *execution.Engine) {
	t.Helper()

	engine := execution.NewEngine(nil, nil)
	srv := NewServer(engine)

	lis := bufconn.Listen(1 << 20)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, engine
}

func TestRemoteExecuteBlockMatchesLocal(t *testing.T) {
	client, engine := startPair(t)
	ctx := context.Background()

	block := &types.Block{
		Height: 1,
		Transactions: []types.Transaction{
			{From: "alice", To: "bob", Amount: 7, Nonce: 1},
		},
	}
	result, err := client.ExecuteBlock(ctx, block)
	if err != nil {
		t.Fatalf("remote execute: %v", err)
	}
	if len(result.Receipts) != 1 {
		t.Fatalf("receipts = %d, want 1", len(result.Receipts))
	}
	if !result.Receipts[0].Success {
		t.Fatal("receipt not successful")
	}

	local, err := engine.StateRoot(ctx)
	if err != nil {
		t.Fatalf("local state root: %v", err)
	}
	if !result.StateRoot.Equal(local) {
		t.Fatalf("remote root %s != server root %s", result.StateRoot, local)
	}

	remote, err := client.StateRoot(ctx)
	if err != nil {
		t.Fatalf("remote state root: %v", err)
	}
	if !remote.Equal(local) {
		t.Fatalf("StateRoot over wire %s != local %s", remote, local)
	}
}

func TestRemoteContextProtocolErrors(t *testing.T) {
	client, _ := startPair(t)
	ctx := context.Background()

	if _, err := client.CommitExecution(ctx); !errors.Is(err, modular.ErrNoActiveContext) {
		t.Fatalf("commit without begin: got %v, want ErrNoActiveContext", err)
	}
	if err := client.BeginExecution(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := client.BeginExecution(ctx); !errors.Is(err, modular.ErrContextActive) {
		t.Fatalf("double begin: got %v, want ErrContextActive", err)
	}
	if err := client.RollbackExecution(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
}

func TestRemoteAccountStateNotFound(t *testing.T) {
	client, _ := startPair(t)

	_, err := client.AccountState(context.Background(), "nobody")
	if !errors.Is(err, modular.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestRemoteVerifyExecution(t *testing.T) {
	client, engine := startPair(t)
	ctx := context.Background()

	prev, err := engine.StateRoot(ctx)
	if err != nil {
		t.Fatalf("state root: %v", err)
	}
	block := &types.Block{
		Height: 1,
		Transactions: []types.Transaction{
			{From: "carol", To: "dave", Amount: 3, Nonce: 1},
		},
	}
	result, err := engine.ExecuteBlock(ctx, block)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	batch := &types.ExecutionBatch{
		BatchID:       types.HashBytes([]byte("batch")),
		Transactions:  block.Transactions,
		Results:       result.Receipts,
		PrevStateRoot: prev,
		NewStateRoot:  result.StateRoot,
	}
	valid, err := client.VerifyExecution(ctx, batch)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid {
		t.Fatal("honest batch rejected")
	}

	batch.NewStateRoot = types.HashBytes([]byte("lie"))
	valid, err = client.VerifyExecution(ctx, batch)
	if err != nil {
		t.Fatalf("verify forged: %v", err)
	}
	if valid {
		t.Fatal("forged batch accepted")
	}
}
