// Package factory constructs the configured layer implementations
// and wires them together.
//
// The implementation namespace is closed: every implementation name
// maps to a known constructor and an unknown name is an error, so a
// typo in configuration fails at startup instead of producing a
// half-wired node.
package factory

import (
	"fmt"
	"log/slog"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/config"
	"github.com/PolyTorus/polytorus-sub000/consensus"
	"github.com/PolyTorus/polytorus-sub000/da"
	"github.com/PolyTorus/polytorus-sub000/execution"
	"github.com/PolyTorus/polytorus-sub000/settlement"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Implementation names accepted in configuration.
const (
	ImplPoWConsensus     = "pow"
	ImplBatchExecution   = "batch"
	ImplRollupSettlement = "rollup"
	ImplLocalDA          = "local"
)

// Layers holds the constructed concrete layers. Fields are nil for
// disabled layers.
type Layers struct {
	Consensus  *consensus.PoW
	Execution  *execution.Engine
	Settlement *settlement.Rollup
	DA         *da.Local
}

// Build constructs every enabled layer from the configuration, wires
// settlement to execution for fraud-proof re-execution, and registers
// each layer with the bus. The bus is optional.
func Build(cfg *config.Manager, b *bus.Bus) (*Layers, error) {
	order, err := cfg.StartupOrder()
	if err != nil {
		return nil, err
	}

	layers := &Layers{}
	for _, name := range order {
		lc, _ := cfg.Layer(name)
		lt, _ := types.ParseLayerType(name)
		if err := layers.build(lt, lc, b); err != nil {
			return nil, err
		}
		slog.Info("layer constructed", "layer", name, "implementation", lc.Implementation)
	}

	if layers.Settlement != nil && layers.Execution != nil {
		layers.Settlement.AttachExecution(layers.Execution)
	}
	if b != nil {
		layers.register(b)
	}
	return layers, nil
}

func (l *Layers) build(lt types.LayerType, lc config.LayerConfig, b *bus.Bus) error {
	switch lt {
	case types.LayerConsensus:
		if lc.Implementation != ImplPoWConsensus {
			return unknownImpl(lt, lc.Implementation)
		}
		l.Consensus = consensus.NewPoW(&consensus.Config{
			Difficulty:  uint32(lc.IntOption("difficulty", 4)),
			IsValidator: lc.BoolOption("is_validator", true),
			MinStake:    uint64(lc.IntOption("min_stake", 0)),
		})
	case types.LayerExecution:
		if lc.Implementation != ImplBatchExecution {
			return unknownImpl(lt, lc.Implementation)
		}
		l.Execution = execution.NewEngine(&execution.Config{
			GasLimit: uint64(lc.IntOption("gas_limit", 10_000_000)),
		}, nil)
	case types.LayerSettlement:
		if lc.Implementation != ImplRollupSettlement {
			return unknownImpl(lt, lc.Implementation)
		}
		l.Settlement = settlement.NewRollup(&settlement.Config{
			ChallengePeriod: uint64(lc.IntOption("challenge_period", 100)),
		})
	case types.LayerDataAvailability:
		if lc.Implementation != ImplLocalDA {
			return unknownImpl(lt, lc.Implementation)
		}
		l.DA = da.NewLocal(da.Config{
			MaxBlobSize: lc.IntOption("max_blob_size", 0),
		}, b)
	}
	return nil
}

func unknownImpl(lt types.LayerType, impl string) error {
	return fmt.Errorf("layer %s implementation %q: %w", lt, impl, modular.ErrLayerNotFound)
}

// register records each constructed layer in the bus registry with
// its capabilities.
func (l *Layers) register(b *bus.Bus) {
	if l.Consensus != nil {
		b.RegisterLayer(types.LayerInfo{
			LayerType:    types.LayerConsensus,
			LayerID:      ImplPoWConsensus,
			Capabilities: []string{"propose", "validate", "chain"},
			HealthStatus: types.HealthHealthy,
		})
	}
	if l.Execution != nil {
		b.RegisterLayer(types.LayerInfo{
			LayerType:    types.LayerExecution,
			LayerID:      ImplBatchExecution,
			Capabilities: []string{"execute", "state", "context"},
			HealthStatus: types.HealthHealthy,
		})
	}
	if l.Settlement != nil {
		b.RegisterLayer(types.LayerInfo{
			LayerType:    types.LayerSettlement,
			LayerID:      ImplRollupSettlement,
			Capabilities: []string{"settle", "challenge", "fraud_proof"},
			HealthStatus: types.HealthHealthy,
		})
	}
	if l.DA != nil {
		b.RegisterLayer(types.LayerInfo{
			LayerType:    types.LayerDataAvailability,
			LayerID:      ImplLocalDA,
			Capabilities: []string{"store", "retrieve", "broadcast"},
			HealthStatus: types.HealthHealthy,
		})
	}
}
