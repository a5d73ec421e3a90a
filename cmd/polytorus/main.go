// Command polytorus runs a single-node modular chain: PoW consensus,
// batch execution, rollup settlement and local data availability
// wired through the message bus under one orchestrator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/PolyTorus/polytorus-sub000/bus"
	"github.com/PolyTorus/polytorus-sub000/config"
	"github.com/PolyTorus/polytorus-sub000/factory"
	"github.com/PolyTorus/polytorus-sub000/orchestrator"
	"github.com/PolyTorus/polytorus-sub000/types"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "polytorus",
		Short:         "Modular blockchain runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func runCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		blockEvery  time.Duration
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(logLevel)
			return run(cmd.Context(), configPath, metricsAddr, blockEvery)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML, TOML or JSON)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "prometheus listen address, empty to disable")
	cmd.Flags().DurationVar(&blockEvery, "block-interval", 12*time.Second, "interval between produced blocks")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func run(ctx context.Context, configPath, metricsAddr string, blockEvery time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	b := bus.New(bus.WithRegisterer(reg))

	layers, err := factory.Build(cfg, b)
	if err != nil {
		return fmt.Errorf("build layers: %w", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Consensus:  layers.Consensus,
		Execution:  layers.Execution,
		Settlement: layers.Settlement,
		DA:         layers.DA,
		Bus:        b,
		Config:     cfg,
	}, &orchestrator.Options{
		Difficulty:     layers.Consensus.Difficulty(),
		HealthInterval: 30 * time.Second,
	}, orchestrator.WithRegisterer(reg))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("metrics exposed", "addr", metricsAddr)
	}

	slog.Info("node started", "version", version, "block_interval", blockEvery)
	produceBlocks(ctx, orch, b.Subscribe(types.MessageTransactionBatch), blockEvery)

	if err := orch.Stop(); err != nil {
		return fmt.Errorf("stop orchestrator: %w", err)
	}
	slog.Info("node stopped", "blocks", orch.Metrics().BlocksProcessed)
	return nil
}

// produceBlocks mines blocks at the configured cadence until the
// context is canceled. Transactions arrive over the bus as batch
// messages and ride along in the next block.
func produceBlocks(ctx context.Context, orch *orchestrator.Orchestrator, batches <-chan types.ModularMessage, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var pending []types.Transaction
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-batches:
			if msg.Payload.Batch != nil {
				pending = append(pending, msg.Payload.Batch.Transactions...)
			}
		case <-ticker.C:
			block, err := orch.BuildBlock(ctx, pending)
			if err != nil {
				slog.Error("build block failed", "err", err)
				continue
			}
			if _, err := orch.ProcessBlock(ctx, block); err != nil {
				slog.Error("block rejected", "height", block.Height, "err", err)
				continue
			}
			pending = nil
		}
	}
}
