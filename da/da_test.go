package da_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/da"
	"github.com/PolyTorus/polytorus-sub000/types"
)

func TestStoreRetrieveRoundTrip(t *testing.T) {
	ctx := context.Background()
	local := da.NewLocal(da.Config{}, nil)

	blob := []byte("block seventeen bytes")
	hash, err := local.StoreData(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, types.HashBytes(blob), hash)

	got, err := local.RetrieveData(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// The returned slice is a copy; mutating it must not corrupt the
	// stored blob.
	got[0] ^= 0xff
	ok, err := local.VerifyAvailability(ctx, hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	local := da.NewLocal(da.Config{}, nil)

	h1, err := local.StoreData(ctx, []byte("same bytes"))
	require.NoError(t, err)
	h2, err := local.StoreData(ctx, []byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, local.Len())
}

func TestRetrieveUnknownHash(t *testing.T) {
	local := da.NewLocal(da.Config{}, nil)
	_, err := local.RetrieveData(context.Background(), types.HashBytes([]byte("missing")))
	require.ErrorIs(t, err, modular.ErrDataNotFound)

	ok, err := local.VerifyAvailability(context.Background(), types.HashBytes([]byte("missing")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaxBlobSize(t *testing.T) {
	ctx := context.Background()
	local := da.NewLocal(da.Config{MaxBlobSize: 8}, nil)

	_, err := local.StoreData(ctx, make([]byte, 9))
	require.Error(t, err)
	assert.Equal(t, 0, local.Len())

	_, err = local.StoreData(ctx, make([]byte, 8))
	require.NoError(t, err)
}

func TestAvailabilityProof(t *testing.T) {
	ctx := context.Background()
	local := da.NewLocal(da.Config{}, nil)

	blob := []byte("attested payload")
	hash, err := local.StoreData(ctx, blob)
	require.NoError(t, err)

	proof, err := local.AvailabilityProof(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, hash, proof.DataHash)
	assert.Equal(t, hash[:], proof.Proof)
	assert.NotZero(t, proof.Timestamp)

	_, err = local.AvailabilityProof(ctx, types.HashBytes([]byte("missing")))
	require.ErrorIs(t, err, modular.ErrDataNotFound)
}

func TestBroadcastData(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	local := da.NewLocal(da.Config{}, b)

	blob := []byte("broadcast me")
	hash, err := local.StoreData(ctx, blob)
	require.NoError(t, err)

	// No subscribers yet: the broadcast is dropped, not failed.
	require.NoError(t, local.BroadcastData(ctx, hash))

	sub := b.Subscribe(types.MessageDataResponse)
	require.NoError(t, local.BroadcastData(ctx, hash))

	select {
	case msg := <-sub:
		assert.Equal(t, types.MessageDataResponse, msg.Type)
		assert.Equal(t, types.LayerDataAvailability, msg.SourceLayer)
		assert.Equal(t, blob, msg.Payload.Raw)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached subscriber")
	}

	err = local.BroadcastData(ctx, types.HashBytes([]byte("missing")))
	require.ErrorIs(t, err, modular.ErrDataNotFound)
}

func TestRequestData(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	local := da.NewLocal(da.Config{}, b)

	// Held blobs are answered without touching the bus.
	blob := []byte("already here")
	hash, err := local.StoreData(ctx, blob)
	require.NoError(t, err)
	got, err := local.RequestData(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// Missing blobs publish a high-priority request and report not
	// found until the blob arrives.
	sub := b.Subscribe(types.MessageDataRequest)
	want := types.HashBytes([]byte("elsewhere"))
	_, err = local.RequestData(ctx, want)
	require.ErrorIs(t, err, modular.ErrDataNotFound)

	select {
	case msg := <-sub:
		assert.Equal(t, types.PriorityHigh, msg.Priority)
		require.NotNil(t, msg.Payload.Request)
		assert.Equal(t, want, msg.Payload.Request.DataHash)
	case <-time.After(time.Second):
		t.Fatal("request never reached subscriber")
	}
}

func TestBusRequiredForBroadcast(t *testing.T) {
	ctx := context.Background()
	local := da.NewLocal(da.Config{}, nil)

	hash, err := local.StoreData(ctx, []byte("stranded"))
	require.NoError(t, err)
	require.Error(t, local.BroadcastData(ctx, hash))

	_, err = local.RequestData(ctx, types.HashBytes([]byte("missing")))
	require.ErrorIs(t, err, modular.ErrDataNotFound)
}
