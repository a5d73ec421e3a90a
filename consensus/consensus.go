// Package consensus implements the proof-of-work consensus layer.
//
// The layer owns the canonical chain: its height, its tip, and the
// validator set. It is single-validator PoW, not BFT — block
// acceptance is purely local validation, and the validator set is an
// in-memory list with no persistence guarantee.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Compile-time interface check.
var _ modular.ConsensusLayer = (*PoW)(nil)

// Validator set errors.
var (
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrValidatorNotFound  = errors.New("validator not found")
	ErrInsufficientStake  = errors.New("stake below minimum")
)

// PoW is the proof-of-work consensus layer. All chain and validator
// state is guarded by a single lock held only for the duration of
// each operation; no lock is held across calls into other layers.
type PoW struct {
	mu sync.RWMutex

	cfg *Config

	chain  []types.Block
	byHash map[types.Hash]int

	validators []types.ValidatorInfo
	byAddress  map[types.Address]int
}

// NewPoW creates a consensus layer with an empty chain.
func NewPoW(cfg *Config) *PoW {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &PoW{
		cfg:       cfg,
		byHash:    make(map[types.Hash]int),
		byAddress: make(map[types.Address]int),
	}
}

// ValidateBlock reports whether block would extend the chain. Three
// checks compose, short-circuiting on the first failure: structure
// (non-empty hash, proof of work), height, and parentage.
func (p *PoW) ValidateBlock(_ context.Context, block *types.Block) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.verify(block); err != nil {
		slog.Debug("block rejected", "height", block.Height, "hash", block.Hash, "reason", err)
		return false
	}
	return true
}

// ProposeBlock validates and appends a block proposed by this node.
func (p *PoW) ProposeBlock(_ context.Context, block *types.Block) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cfg.IsValidator {
		return modular.ErrNotValidator
	}
	return p.append(block)
}

// AddBlock validates and appends a block from a non-proposing path.
func (p *PoW) AddBlock(_ context.Context, block *types.Block) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.append(block)
}

func (p *PoW) append(block *types.Block) error {
	if err := p.verify(block); err != nil {
		return fmt.Errorf("add block at height %d: %w", block.Height, err)
	}
	p.chain = append(p.chain, *block)
	p.byHash[block.Hash] = len(p.chain) - 1
	slog.Info("block accepted", "height", block.Height, "hash", block.Hash, "txs", len(block.Transactions))
	return nil
}

// verify composes the acceptance checks. Caller holds the lock.
func (p *PoW) verify(block *types.Block) error {
	// Structure: hash must be present and meet the work target.
	if block.Hash.IsEmpty() {
		return &modular.ValidationError{Reason: "empty block hash"}
	}
	if !block.Hash.MeetsDifficulty(p.cfg.Difficulty) {
		return &modular.ValidationError{
			Reason: fmt.Sprintf("hash %s does not meet difficulty %d", block.Hash.Hex(), p.cfg.Difficulty),
		}
	}
	if !p.verifyTransactions(block) {
		return &modular.ValidationError{Reason: "transaction validation failed"}
	}

	// Height: exactly one past the tip. The internal height of an
	// empty chain is -1, so genesis must carry height 0.
	if block.Height != p.height()+1 {
		return &modular.ValidationError{
			Reason: fmt.Sprintf("height %d does not extend chain height %d", block.Height, p.height()),
		}
	}

	// Parentage: previous hash must name the tip, or be empty
	// alongside an empty chain for genesis.
	if len(p.chain) == 0 {
		if !block.PrevHash.IsEmpty() {
			return &modular.ValidationError{Reason: "genesis block must have empty parent"}
		}
		return nil
	}
	tip := p.chain[len(p.chain)-1].Hash
	if block.PrevHash != tip {
		return &modular.ValidationError{
			Reason: fmt.Sprintf("parent %s is not the tip %s", block.PrevHash, tip),
		}
	}
	return nil
}

// verifyTransactions is a placeholder that accepts every transaction.
// Transaction-level validation is intentionally not performed at the
// consensus layer; the execution layer enforces transaction
// semantics.
func (p *PoW) verifyTransactions(_ *types.Block) bool {
	return true
}

// height is the internal chain height: -1 when empty. Caller holds
// the lock.
func (p *PoW) height() int64 {
	return int64(len(p.chain)) - 1
}

// BlockHeight returns the tip height, surfacing the empty chain as 0.
func (p *PoW) BlockHeight(_ context.Context) (uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	h := p.height()
	if h < 0 {
		return 0, nil
	}
	return uint64(h), nil
}

// CanonicalChain returns a copy of the accepted chain, genesis first.
func (p *PoW) CanonicalChain(_ context.Context) ([]types.Block, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	chain := make([]types.Block, len(p.chain))
	copy(chain, p.chain)
	return chain, nil
}

// BlockByHash looks up an accepted block by hash.
func (p *PoW) BlockByHash(_ context.Context, hash types.Hash) (*types.Block, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx, ok := p.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("block %s: %w", hash, modular.ErrBlockNotFound)
	}
	block := p.chain[idx]
	return &block, nil
}

// Tip returns the current tip block, or nil for an empty chain.
func (p *PoW) Tip() *types.Block {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.chain) == 0 {
		return nil
	}
	tip := p.chain[len(p.chain)-1]
	return &tip
}

// Difficulty returns the configured work target.
func (p *PoW) Difficulty() uint32 {
	return p.cfg.Difficulty
}

// IsValidator reports whether this node may propose blocks.
func (p *PoW) IsValidator(_ context.Context) bool {
	return p.cfg.IsValidator
}

// ValidatorSet returns a copy of the current validator set.
func (p *PoW) ValidatorSet(_ context.Context) ([]types.ValidatorInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set := make([]types.ValidatorInfo, len(p.validators))
	copy(set, p.validators)
	return set, nil
}

// AddValidator adds a validator to the in-memory set.
func (p *PoW) AddValidator(info types.ValidatorInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byAddress[info.Address]; exists {
		return fmt.Errorf("validator %s: %w", info.Address, ErrDuplicateValidator)
	}
	if info.Stake < p.cfg.MinStake {
		return fmt.Errorf("validator %s stake %d: %w", info.Address, info.Stake, ErrInsufficientStake)
	}
	p.validators = append(p.validators, info)
	p.byAddress[info.Address] = len(p.validators) - 1
	return nil
}

// RemoveValidator removes a validator by address.
func (p *PoW) RemoveValidator(addr types.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.byAddress[addr]
	if !ok {
		return fmt.Errorf("validator %s: %w", addr, ErrValidatorNotFound)
	}
	p.validators = append(p.validators[:idx], p.validators[idx+1:]...)
	delete(p.byAddress, addr)
	for i := idx; i < len(p.validators); i++ {
		p.byAddress[p.validators[i].Address] = i
	}
	return nil
}
