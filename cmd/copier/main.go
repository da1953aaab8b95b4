// Command copier runs the replication engine: it observes open positions
// on a master account and mirrors them onto a slave account, polling at a
// configurable interval and logging every replicated action to an
// append-only order log.
//
// Architecture:
//
//	main.go                 — entry point: loads config, starts the engine, waits for SIGINT/SIGTERM
//	internal/config         — credentials.csv / symbol_mapping.csv loaders + config.yaml runtime settings
//	internal/broker         — session manager, filling-mode cache, rate limiter around the broker bridge
//	internal/broker/rpcclient — HTTP adapter to the broker terminal's bridge process
//	internal/engine         — polling loop, snapshot diff, open/modify/close dispatch
//	internal/audit          — append-only orderlog.txt writer
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mt5copier/tradecopier/internal/audit"
	"github.com/mt5copier/tradecopier/internal/broker"
	"github.com/mt5copier/tradecopier/internal/broker/rpcclient"
	"github.com/mt5copier/tradecopier/internal/config"
	"github.com/mt5copier/tradecopier/internal/engine"
	"github.com/mt5copier/tradecopier/internal/logging"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("MT5_COPIER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}
	mappings, err := config.LoadMapping(cfg.MappingFile)
	if err != nil {
		logger.Error("failed to load symbol mapping", "error", err)
		os.Exit(1)
	}

	auditW, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		logger.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer auditW.Close()

	client := rpcclient.New(cfg.Broker.BridgeURL)
	session := broker.NewSession(client, logger)
	fills := broker.NewFillCache()

	eng := engine.New(
		session,
		config.MappingBySymbol(mappings),
		fills,
		auditW,
		cfg,
		creds.Master,
		creds.Slave,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("replication engine started",
		"poll_interval", cfg.PollInterval,
		"master_login", creds.Master.Login,
		"slave_login", creds.Slave.Login,
		"symbols_mapped", len(mappings),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(runDone)
	}()

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())
	cancel()
	<-runDone

	if err := session.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shut down broker session", "error", err)
	}
}
