// Package da implements the in-process data availability layer: a
// hash-addressed blob store with availability proofs and bus-backed
// broadcast and retrieval.
package da

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Config tunes the local data availability layer.
type Config struct {
	// MaxBlobSize rejects blobs larger than this many bytes.
	// Zero means unlimited.
	MaxBlobSize int
}

// Local is an in-memory data availability layer. Blobs are keyed by
// their content hash, so storing the same bytes twice is idempotent.
type Local struct {
	mu sync.RWMutex

	cfg   Config
	blobs map[types.Hash][]byte
	// storedAt records when each blob arrived, for proofs.
	storedAt map[types.Hash]uint64

	bus *bus.Bus
}

var _ modular.DataAvailabilityLayer = (*Local)(nil)

// NewLocal creates an empty store. The bus is optional; without it
// BroadcastData and RequestData fail.
func NewLocal(cfg Config, b *bus.Bus) *Local {
	return &Local{
		cfg:      cfg,
		blobs:    make(map[types.Hash][]byte),
		storedAt: make(map[types.Hash]uint64),
		bus:      b,
	}
}

// StoreData stores a blob and returns its content hash.
func (l *Local) StoreData(ctx context.Context, data []byte) (types.Hash, error) {
	if err := ctx.Err(); err != nil {
		return types.Hash{}, err
	}
	if l.cfg.MaxBlobSize > 0 && len(data) > l.cfg.MaxBlobSize {
		return types.Hash{}, fmt.Errorf("blob of %d bytes exceeds limit %d", len(data), l.cfg.MaxBlobSize)
	}

	hash := types.HashBytes(data)

	l.mu.Lock()
	if _, ok := l.blobs[hash]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		l.blobs[hash] = stored
		l.storedAt[hash] = uint64(time.Now().Unix())
	}
	l.mu.Unlock()

	slog.Debug("blob stored", "hash", hash.String(), "bytes", len(data))
	return hash, nil
}

// RetrieveData returns the blob for a hash, or ErrDataNotFound.
func (l *Local) RetrieveData(ctx context.Context, hash types.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	blob, ok := l.blobs[hash]
	l.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("retrieve %s: %w", hash.String(), modular.ErrDataNotFound)
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// VerifyAvailability reports whether the blob for a hash is held and
// still matches its hash.
func (l *Local) VerifyAvailability(ctx context.Context, hash types.Hash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.RLock()
	blob, ok := l.blobs[hash]
	l.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return types.HashBytes(blob).Equal(hash), nil
}

// BroadcastData announces a held blob on the bus as a data response.
// A bus with no data-response subscribers is not an error.
func (l *Local) BroadcastData(ctx context.Context, hash types.Hash) error {
	blob, err := l.RetrieveData(ctx, hash)
	if err != nil {
		return err
	}
	if l.bus == nil {
		return errors.New("broadcast without a bus")
	}

	msg := types.ModularMessage{
		Type:        types.MessageDataResponse,
		SourceLayer: types.LayerDataAvailability,
		Priority:    types.PriorityNormal,
		Payload:     types.MessagePayload{Raw: blob},
	}
	if err := l.bus.Publish(ctx, msg); err != nil && !errors.Is(err, modular.ErrNoChannelForType) {
		return fmt.Errorf("broadcast %s: %w", hash.String(), err)
	}
	return nil
}

// RequestData asks the network for a blob by hash. Locally held blobs
// are answered immediately; otherwise a data request is published and
// the caller gets ErrDataNotFound until the blob arrives.
func (l *Local) RequestData(ctx context.Context, hash types.Hash) ([]byte, error) {
	if blob, err := l.RetrieveData(ctx, hash); err == nil {
		return blob, nil
	} else if !errors.Is(err, modular.ErrDataNotFound) {
		return nil, err
	}
	if l.bus == nil {
		return nil, fmt.Errorf("request %s: %w", hash.String(), modular.ErrDataNotFound)
	}

	msg := types.ModularMessage{
		Type:        types.MessageDataRequest,
		SourceLayer: types.LayerDataAvailability,
		Priority:    types.PriorityHigh,
		Payload: types.MessagePayload{
			Request: &types.DataRequest{DataHash: hash},
		},
	}
	if err := l.bus.Publish(ctx, msg); err != nil && !errors.Is(err, modular.ErrNoChannelForType) {
		return nil, fmt.Errorf("request %s: %w", hash.String(), err)
	}
	return nil, fmt.Errorf("request %s: %w", hash.String(), modular.ErrDataNotFound)
}

// AvailabilityProof produces a proof of custody for a held blob. The
// proof bytes are the hash of the held blob recomputed at proof
// time, so a corrupted blob cannot be attested.
func (l *Local) AvailabilityProof(ctx context.Context, hash types.Hash) (types.AvailabilityProof, error) {
	if err := ctx.Err(); err != nil {
		return types.AvailabilityProof{}, err
	}

	l.mu.RLock()
	blob, ok := l.blobs[hash]
	storedAt := l.storedAt[hash]
	l.mu.RUnlock()

	if !ok {
		return types.AvailabilityProof{}, fmt.Errorf("proof for %s: %w", hash.String(), modular.ErrDataNotFound)
	}
	witness := types.HashBytes(blob)
	return types.AvailabilityProof{
		DataHash:  hash,
		Proof:     witness[:],
		Timestamp: storedAt,
	}, nil
}

// Len reports how many blobs are held.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blobs)
}
