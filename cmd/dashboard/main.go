// Command dashboard runs the thin process-control, symbol-mapping CRUD,
// and log-tail HTTP surface: it starts and stops the copier subprocess,
// lets an operator edit the symbol-mapping table, and streams the audit
// log.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mt5copier/tradecopier/internal/config"
	"github.com/mt5copier/tradecopier/internal/dashboard"
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

	logger := logging.New(cfg.Logging)

	// The copier subprocess reads its own config from MT5_COPIER_CONFIG,
	// so the dashboard passes no args — it only needs to share the same
	// environment, which os/exec.Command inherits by default.
	srv := dashboard.NewServer(*cfg, nil, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("dashboard server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("dashboard started", "port", cfg.Dashboard.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := srv.Stop(); err != nil {
		logger.Error("failed to stop dashboard server", "error", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.ProcessManager().Stop(stopCtx); err != nil {
		logger.Error("failed to stop copier subprocess", "error", err)
	}
}
