// Command publisher runs the master-state publisher variant: it logs into
// the master account only, polls positions_get at a short interval, and
// publishes a compact JSON snapshot through a file and/or an optional
// loopback HTTP endpoint — fast enough for an in-terminal agent on the
// slave side to act on with sub-tick latency.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mt5copier/tradecopier/internal/broker"
	"github.com/mt5copier/tradecopier/internal/broker/rpcclient"
	"github.com/mt5copier/tradecopier/internal/config"
	"github.com/mt5copier/tradecopier/internal/logging"
	"github.com/mt5copier/tradecopier/internal/publisher"
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

	client := rpcclient.New(cfg.Broker.BridgeURL)
	session := broker.NewSession(client, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Initialise(ctx); err != nil {
		logger.Error("failed to initialise terminal", "error", err)
		os.Exit(1)
	}
	if err := session.SwitchTo(ctx, creds.Master); err != nil {
		logger.Error("failed to log into master account", "error", err)
		os.Exit(1)
	}

	pub := publisher.New(cfg.Publisher.OutputDir, cfg.Publisher.HTTPPort, logger)
	pub.Start()

	logger.Info("master state publisher started",
		"poll_interval", cfg.Publisher.PollInterval,
		"output_dir", cfg.Publisher.OutputDir,
		"http_port", cfg.Publisher.HTTPPort,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Publisher.PollInterval)
	defer ticker.Stop()

pollLoop:
	for {
		select {
		case <-sigCh:
			break pollLoop
		case <-ticker.C:
			positions, err := session.Client().PositionsGet(ctx)
			if err != nil {
				logger.Warn("positions_get failed", "error", err)
				continue
			}
			state := publisher.BuildState(mappings, positions, float64(time.Now().UnixNano())/1e9)
			if err := pub.Publish(state); err != nil {
				logger.Warn("publish failed", "error", err)
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := pub.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop publisher http server", "error", err)
	}
	if err := session.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shut down broker session", "error", err)
	}
}
