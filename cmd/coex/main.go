// coex is an off-chain order executor for a limit-order-book protocol: it
// watches new blocks, replays and maintains an in-memory replica of active
// orders and the pools that price them, simulates execution against that
// replica, and submits executeLimitOrders/executeSandboxMulticall
// transactions when an order crosses its execution price.
//
// Architecture:
//
//	main.go                    — entry point: loads config, starts the engine, waits for SIGINT/SIGTERM
//	internal/engine            — loop driver: start-up replay, block subscription, cancellation/refresh, simulation
//	internal/state             — single-writer in-memory replica of active orders and markets
//	internal/events            — classifies and decodes the nine order/pool event signatures
//	internal/chain             — go-ethereum RPC/WS client wrapper
//	internal/dex, internal/pool, internal/router — pool discovery, AMM math, best-route search
//	internal/simulator         — sandbox and limit-order execution simulators
//	internal/txmanager         — transaction construction, signing, submission, pending-tx reaping
//	internal/checkin           — periodic on-chain liveness check-in
//	internal/wallet            — private key signer
//	internal/config            — TOML configuration and per-chain profiles
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/conveyorlabs/coex/internal/config"
	"github.com/conveyorlabs/coex/internal/engine"
)

func main() {
	cfgPath := flag.String("c", "./coex.toml", "path to the executor's TOML config file")
	flag.StringVar(cfgPath, "config", "./coex.toml", "path to the executor's TOML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", *cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("coex started",
		"chain", cfg.ChainName,
		"order_cancellation", cfg.OrderCancellation,
		"order_refresh", cfg.OrderRefresh,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
