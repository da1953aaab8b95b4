// Package broker defines the narrow capability interface the replication
// engine requires from a broker terminal client, and the session manager
// that owns the single process-wide login to that terminal.
//
// The production client (login, positions_get, order_send, tick queries) is
// an external collaborator — this package only specifies the boundary and
// provides the in-process session discipline around it.
package broker

import (
	"context"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// Client is the capability interface a broker terminal client must expose.
// Every method is context-aware and synchronous: the session manager and
// engine never issue two calls concurrently on the same Client.
type Client interface {
	// Initialise starts the terminal connection. Called at most once per
	// process lifetime.
	Initialise(ctx context.Context) error

	// Shutdown tears the terminal connection down. Called once on exit.
	Shutdown(ctx context.Context) error

	// Login authenticates the given account on the already-initialised
	// terminal.
	Login(ctx context.Context, login uint64, password, server string) error

	// PositionsGet returns every currently open position on the logged-in
	// account.
	PositionsGet(ctx context.Context) ([]types.Position, error)

	// PositionByTicket returns a single position, or nil if it no longer
	// exists.
	PositionByTicket(ctx context.Context, ticket uint64) (*types.Position, error)

	// SymbolInfo reports broker-side metadata for a symbol.
	SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error)

	// SymbolInfoTick returns the current bid/ask for a symbol.
	SymbolInfoTick(ctx context.Context, symbol string) (types.Tick, error)

	// SymbolSelect makes a symbol visible for trading/tick queries — a
	// broker-specific prerequisite some terminals require before the first
	// tick or order for a symbol will succeed.
	SymbolSelect(ctx context.Context, symbol string) error

	// OrderSend submits a market deal or SL/TP modify request.
	OrderSend(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
}
