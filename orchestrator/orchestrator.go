// Package orchestrator sequences the pluggable layers into a unified
// block pipeline and exposes a uniform event stream.
//
// The orchestrator holds the four layer interfaces plus the message
// bus as injected collaborators. ProcessBlock drives one block
// through propose, mine, validate, execute, settle, data
// availability and finalize, emitting lifecycle events at each
// stage. Sustained stage failures become health and alert events,
// never process termination.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"golang.org/x/sync/errgroup"

	modular "github.com/PolyTorus/polytorus-sub000"
	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/config"
	"github.com/PolyTorus/polytorus-sub000/types"
)

// Deps are the orchestrator's injected collaborators. Consensus,
// Execution, Settlement and Bus are required; DA and Config are
// optional.
type Deps struct {
	Consensus  modular.ConsensusLayer
	Execution  modular.ExecutionLayer
	Settlement modular.SettlementLayer
	DA         modular.DataAvailabilityLayer
	Bus        *bus.Bus
	Config     *config.Manager
}

// Options tune orchestrator behavior.
type Options struct {
	// Difficulty stamped onto blocks built by BuildBlock.
	Difficulty uint32
	// HealthInterval between health-check broadcasts on the bus.
	HealthInterval time.Duration
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() *Options {
	return &Options{
		Difficulty:     4,
		HealthInterval: 30 * time.Second,
	}
}

// Orchestrator coordinates the layers. Lifecycle:
// created → started → running → stopped.
type Orchestrator struct {
	mu sync.Mutex

	deps Deps
	opts *Options

	life  lifecycle
	queue *eventQueue

	subscribers []chan types.Event

	metrics Metrics
	prom    *promMetrics

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates an orchestrator in the created state.
func New(deps Deps, opts *Options, busOpts ...Option) *Orchestrator {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := &Orchestrator{
		deps:  deps,
		opts:  opts,
		queue: newEventQueue(),
	}
	for _, bo := range busOpts {
		bo(o)
	}
	return o
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// Start launches the event loop and the periodic health broadcast,
// then moves to running. Fails with ErrAlreadyStarted unless the
// orchestrator is freshly created.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.life.transition(stateCreated, stateStarted) {
		return fmt.Errorf("start in state %s: %w", o.life.current(), modular.ErrAlreadyStarted)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, loopCtx := errgroup.WithContext(loopCtx)

	o.mu.Lock()
	o.cancel = cancel
	o.group = g
	o.mu.Unlock()

	g.Go(func() error {
		err := o.RunEventLoop(loopCtx)
		if err != nil && loopCtx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		o.healthLoop(loopCtx)
		return nil
	})

	o.life.transition(stateStarted, stateRunning)
	o.emit(types.EventLayerHealthChanged, types.SeverityInfo, 0, types.EventDetail{
		Message: "orchestrator running",
	})
	slog.Info("orchestrator started")
	return nil
}

// Stop drains what it can and moves to stopped. A stopped
// orchestrator is terminal.
func (o *Orchestrator) Stop() error {
	if !o.life.transition(stateRunning, stateStopped) {
		return fmt.Errorf("stop in state %s: %w", o.life.current(), modular.ErrNotRunning)
	}
	o.emit(types.EventLayerHealthChanged, types.SeverityInfo, 0, types.EventDetail{
		Message: "orchestrator stopping",
	})
	o.ProcessPriorityEvents(context.Background())

	o.mu.Lock()
	cancel, group := o.cancel, o.group
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if group != nil {
		if err := group.Wait(); err != nil {
			return fmt.Errorf("stop orchestrator: %w", err)
		}
	}
	slog.Info("orchestrator stopped")
	return nil
}

// IsRunning reports whether the orchestrator accepts blocks.
func (o *Orchestrator) IsRunning() bool {
	return o.life.isRunning()
}

// State returns the lifecycle state name.
func (o *Orchestrator) State() string {
	return o.life.current().String()
}

// BuildBlock assembles an unsealed block extending the current tip
// with the given transactions.
func (o *Orchestrator) BuildBlock(ctx context.Context, txs []types.Transaction) (*types.Block, error) {
	chain, err := o.deps.Consensus.CanonicalChain(ctx)
	if err != nil {
		return nil, fmt.Errorf("build block: %w", err)
	}
	block := &types.Block{
		Height:       int64(len(chain)),
		Timestamp:    uint64(time.Now().Unix()),
		Difficulty:   o.opts.Difficulty,
		Transactions: txs,
	}
	if len(chain) > 0 {
		block.PrevHash = chain[len(chain)-1].Hash
	}
	return block, nil
}

// ProcessBlock drives a building block through the full pipeline:
// mine, validate, execute, settle, store, finalize. The block is
// returned sealed and accepted on the canonical chain. Any stage
// failure rejects the block without corrupting committed state.
func (o *Orchestrator) ProcessBlock(ctx context.Context, block *types.Block) (*types.Block, error) {
	if !o.life.isRunning() {
		return nil, modular.ErrNotRunning
	}
	start := time.Now()

	o.emit(types.EventBlockProposed, types.SeverityInfo, types.LayerConsensus, types.EventDetail{
		BlockHeight: block.Height,
	})
	o.emit(types.EventConsensusRoundStarted, types.SeverityInfo, types.LayerConsensus, types.EventDetail{
		BlockHeight: block.Height,
	})

	// Mine.
	if err := block.Mine(ctx); err != nil {
		o.alert(types.LayerConsensus, types.SeverityHigh, fmt.Sprintf("mining abandoned: %v", err))
		return nil, fmt.Errorf("mine block %d: %w", block.Height, err)
	}

	// Validate.
	if !o.deps.Consensus.ValidateBlock(ctx, block) {
		o.alert(types.LayerConsensus, types.SeverityHigh, "block failed validation")
		return nil, &modular.ValidationError{Reason: fmt.Sprintf("block %d rejected by consensus", block.Height)}
	}
	o.emit(types.EventBlockValidated, types.SeverityInfo, types.LayerConsensus, types.EventDetail{
		BlockHeight: block.Height,
		BlockHash:   &block.Hash,
	})

	// Execute.
	prevRoot, err := o.deps.Execution.StateRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read state root: %w", err)
	}
	o.emit(types.EventExecutionStarted, types.SeverityInfo, types.LayerExecution, types.EventDetail{
		BlockHeight: block.Height,
	})
	result, err := o.deps.Execution.ExecuteBlock(ctx, block)
	if err != nil {
		o.emit(types.EventExecutionFailed, types.SeverityHigh, types.LayerExecution, types.EventDetail{
			BlockHeight: block.Height,
			Message:     err.Error(),
		})
		o.degrade(ctx, types.LayerExecution)
		return nil, fmt.Errorf("execute block %d: %w", block.Height, err)
	}
	o.emit(types.EventExecutionCompleted, types.SeverityInfo, types.LayerExecution, types.EventDetail{
		BlockHeight: block.Height,
		GasUsed:     result.GasUsed,
	})

	// Settle.
	batch := &types.ExecutionBatch{
		BatchID:       block.Hash,
		Transactions:  block.Transactions,
		Results:       result.Receipts,
		PrevStateRoot: prevRoot,
		NewStateRoot:  result.StateRoot,
	}
	o.emit(types.EventBatchSubmitted, types.SeverityInfo, types.LayerSettlement, types.EventDetail{
		BatchID: &batch.BatchID,
	})
	if _, err := o.deps.Settlement.SettleBatch(ctx, batch); err != nil {
		o.degrade(ctx, types.LayerSettlement)
		return nil, fmt.Errorf("settle block %d: %w", block.Height, err)
	}
	o.emit(types.EventBatchSettled, types.SeverityInfo, types.LayerSettlement, types.EventDetail{
		BatchID: &batch.BatchID,
	})

	// Data availability, best effort.
	o.storeBlockData(ctx, block)

	// Finalize.
	if err := o.deps.Consensus.AddBlock(ctx, block); err != nil {
		o.degrade(ctx, types.LayerConsensus)
		return nil, fmt.Errorf("finalize block %d: %w", block.Height, err)
	}
	o.emit(types.EventConsensusRoundCompleted, types.SeverityInfo, types.LayerConsensus, types.EventDetail{
		BlockHeight: block.Height,
	})
	o.emit(types.EventBlockFinalized, types.SeverityInfo, types.LayerConsensus, types.EventDetail{
		BlockHeight: block.Height,
		BlockHash:   &block.Hash,
	})

	o.recordBlock(block, time.Since(start))
	return block, nil
}

// storeBlockData persists the block to the data availability layer.
// Failures alert but never reject the block.
func (o *Orchestrator) storeBlockData(ctx context.Context, block *types.Block) {
	if o.deps.DA == nil {
		return
	}
	data, err := cramberry.Marshal(block)
	if err != nil {
		o.alert(types.LayerDataAvailability, types.SeverityWarning, fmt.Sprintf("marshal block: %v", err))
		return
	}
	hash, err := o.deps.DA.StoreData(ctx, data)
	if err != nil {
		o.alert(types.LayerDataAvailability, types.SeverityWarning, fmt.Sprintf("store block: %v", err))
		return
	}
	o.emit(types.EventDataStored, types.SeverityInfo, types.LayerDataAvailability, types.EventDetail{
		BlockHeight: block.Height,
		BlockHash:   &hash,
	})
}

// SubmitChallenge routes a settlement challenge through the
// settlement layer and emits the challenge lifecycle events.
func (o *Orchestrator) SubmitChallenge(ctx context.Context, challenge *types.SettlementChallenge) (types.ChallengeResult, error) {
	if !o.life.isRunning() {
		return types.ChallengeResult{}, modular.ErrNotRunning
	}
	o.emit(types.EventChallengeSubmitted, types.SeverityWarning, types.LayerSettlement, types.EventDetail{
		BatchID:     &challenge.BatchID,
		ChallengeID: challenge.ChallengeID,
	})
	result, err := o.deps.Settlement.ProcessChallenge(ctx, challenge)
	if err != nil {
		o.degrade(ctx, types.LayerSettlement)
		return types.ChallengeResult{}, fmt.Errorf("process challenge: %w", err)
	}
	severity := types.SeverityInfo
	if result.Successful {
		severity = types.SeverityHigh
	}
	o.emit(types.EventChallengeResolved, severity, types.LayerSettlement, types.EventDetail{
		BatchID:     &challenge.BatchID,
		ChallengeID: result.ChallengeID,
		Message:     fmt.Sprintf("successful=%v", result.Successful),
	})
	return result, nil
}

// NotifyConfigChanged emits a configuration change event, used by the
// config manager's reload hook.
func (o *Orchestrator) NotifyConfigChanged(detail string) {
	o.emit(types.EventConfigurationChanged, types.SeverityHigh, 0, types.EventDetail{
		Message: detail,
	})
}

// alert emits a performance alert.
func (o *Orchestrator) alert(layer types.LayerType, severity types.EventSeverity, msg string) {
	o.emit(types.EventPerformanceAlert, severity, layer, types.EventDetail{Message: msg})
}

// degrade marks a layer degraded in the bus registry and emits the
// health change.
func (o *Orchestrator) degrade(_ context.Context, layer types.LayerType) {
	if o.deps.Bus != nil {
		if err := o.deps.Bus.UpdateHealth(layer, types.HealthDegraded); err != nil {
			slog.Debug("health update skipped", "layer", layer, "err", err)
		}
	}
	o.emit(types.EventLayerHealthChanged, types.SeverityHigh, layer, types.EventDetail{
		Message: "layer degraded",
	})
}

// healthLoop periodically broadcasts a health check on the bus.
func (o *Orchestrator) healthLoop(ctx context.Context) {
	if o.deps.Bus == nil || o.opts.HealthInterval <= 0 {
		return
	}
	ticker := time.NewTicker(o.opts.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := types.ModularMessage{
				Type:        types.MessageHealthCheck,
				SourceLayer: 0,
				Priority:    types.PriorityNormal,
				Payload: types.MessagePayload{
					Health: &types.HealthReport{Status: types.HealthHealthy, Detail: "orchestrator"},
				},
			}
			if err := o.deps.Bus.Publish(ctx, msg); err != nil && !errors.Is(err, modular.ErrNoChannelForType) {
				slog.Warn("health broadcast failed", "err", err)
			}
		}
	}
}

// Health reports the registry's view of each layer plus the
// orchestrator's own state.
func (o *Orchestrator) Health() map[string]string {
	out := map[string]string{
		"orchestrator": o.life.current().String(),
	}
	if o.deps.Bus != nil {
		for _, info := range o.deps.Bus.Layers() {
			out[info.LayerType.String()] = info.HealthStatus.String()
		}
	}
	return out
}
