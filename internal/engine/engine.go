package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mt5copier/tradecopier/internal/audit"
	"github.com/mt5copier/tradecopier/internal/broker"
	"github.com/mt5copier/tradecopier/internal/config"
	"github.com/mt5copier/tradecopier/pkg/types"
)

// Engine is the replication engine: a single cooperative polling loop that
// derives open/modify/close events from the master snapshot and dispatches
// them, batched, against the slave account.
type Engine struct {
	session *broker.Session
	mapping map[string]types.SymbolMapping
	fills   *broker.FillCache
	auditW  *audit.Writer
	logger  *slog.Logger

	masterCreds types.CredentialSet
	slaveCreds  types.CredentialSet

	pollInterval time.Duration
	openDevPts   int
	closeDevPts  int
	magic        int

	ticketMap TicketMap
	ignored   IgnoredSet

	// unmappedLogged suppresses repeat "unmapped symbol" log lines for
	// symbols already reported once.
	unmappedLogged map[string]struct{}
}

// New constructs an Engine. Callers must call Start before Run to perform
// the pre-existing-position snapshot.
func New(
	session *broker.Session,
	mapping map[string]types.SymbolMapping,
	fills *broker.FillCache,
	auditW *audit.Writer,
	cfg *config.Runtime,
	masterCreds, slaveCreds types.CredentialSet,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		session:        session,
		mapping:        mapping,
		fills:          fills,
		auditW:         auditW,
		logger:         logger.With("component", "engine"),
		masterCreds:    masterCreds,
		slaveCreds:     slaveCreds,
		pollInterval:   cfg.PollInterval,
		openDevPts:     cfg.Deviation.Open,
		closeDevPts:    cfg.Deviation.Close,
		magic:          cfg.MagicNumber,
		ticketMap:      make(TicketMap),
		ignored:        make(IgnoredSet),
		unmappedLogged: make(map[string]struct{}),
	}
}

// Start records every master position open at engine start into IgnoredSet
// — pre-existing positions are never the engine's responsibility — and is
// immutable thereafter.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.session.Initialise(ctx); err != nil {
		return err
	}
	if err := e.session.SwitchTo(ctx, e.masterCreds); err != nil {
		return fmt.Errorf("initial master login: %w", err)
	}
	positions, err := e.session.Client().PositionsGet(ctx)
	if err != nil {
		return fmt.Errorf("record existing trades: %w", err)
	}
	for _, p := range positions {
		e.ignored[p.Ticket] = struct{}{}
	}
	e.logger.Info("recorded pre-existing master positions", "count", len(positions))
	return nil
}

// Run executes the polling loop until ctx is cancelled. The first iteration
// runs immediately; subsequent iterations follow the configured interval.
func (e *Engine) Run(ctx context.Context) {
	e.tick(ctx)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if err := e.session.SwitchTo(ctx, e.masterCreds); err != nil {
		e.logger.Warn("skipping batch: cannot reach master", "error", err)
		return
	}

	positions, err := e.session.Client().PositionsGet(ctx)
	if err != nil {
		e.logger.Warn("skipping batch: positions_get failed", "error", err)
		return
	}

	opens := DeriveOpens(positions, e.ignored, e.ticketMap)
	mods := DeriveMods(positions, e.ticketMap)
	closes := DeriveCloses(positions, e.ticketMap)

	if len(opens) == 0 && len(mods) == 0 && len(closes) == 0 {
		return
	}

	if err := e.session.SwitchTo(ctx, e.slaveCreds); err != nil {
		e.logger.Warn("skipping batch: cannot reach slave", "error", err)
		return
	}

	for _, p := range opens {
		e.dispatchOpen(ctx, p)
	}
	for _, m := range mods {
		e.dispatchMod(ctx, m)
	}
	for _, t := range closes {
		e.dispatchClose(ctx, t)
	}

	if err := e.session.SwitchTo(ctx, e.masterCreds); err != nil {
		e.logger.Warn("could not switch back to master after dispatch", "error", err)
	}
}
