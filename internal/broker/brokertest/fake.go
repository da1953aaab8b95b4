// Package brokertest provides an in-memory Client double for exercising the
// session manager and replication engine without a real broker terminal.
package brokertest

import (
	"context"
	"errors"
	"sync"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// Fake is a scriptable broker.Client. Tests configure it by mutating its
// exported fields before handing it to the code under test, or by calling
// the setter helpers for common cases.
type Fake struct {
	mu sync.Mutex

	InitErr     error
	LoginErr    map[uint64]error // per-login error override
	positions   map[uint64][]types.Position
	currentSide uint64 // login currently "selected" for PositionsGet

	// FillingModes maps symbol -> the mode that returns DONE; any other
	// mode returns INVALID_FILL. Symbols absent from the map always
	// return DONE regardless of requested mode.
	FillingModes map[string]types.FillingMode

	// OrderSendErr, when set, is returned verbatim from every OrderSend.
	OrderSendErr error

	Ticks map[string]types.Tick

	nextTicket uint64
	sent       []types.OrderRequest
}

// New creates an empty fake with a starting slave-ticket counter.
func New() *Fake {
	return &Fake{
		positions:    make(map[uint64][]types.Position),
		LoginErr:     make(map[uint64]error),
		FillingModes: make(map[string]types.FillingMode),
		Ticks:        make(map[string]types.Tick),
		nextTicket:   90000,
	}
}

// SetPositions seeds the open positions visible under a given login.
func (f *Fake) SetPositions(login uint64, positions []types.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[login] = positions
}

// Sent returns every OrderRequest passed to OrderSend so far, in order.
func (f *Fake) Sent() []types.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.OrderRequest, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *Fake) Initialise(ctx context.Context) error { return f.InitErr }

func (f *Fake) Shutdown(ctx context.Context) error { return nil }

func (f *Fake) Login(ctx context.Context, login uint64, password, server string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.LoginErr[login]; ok && err != nil {
		return err
	}
	f.currentSide = login
	return nil
}

func (f *Fake) PositionsGet(ctx context.Context) ([]types.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Position(nil), f.positions[f.currentSide]...), nil
}

func (f *Fake) PositionByTicket(ctx context.Context, ticket uint64) (*types.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.positions[f.currentSide] {
		if p.Ticket == ticket {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Fake) SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	return types.SymbolInfo{Symbol: symbol}, nil
}

func (f *Fake) SymbolInfoTick(ctx context.Context, symbol string) (types.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.Ticks[symbol]; ok {
		return t, nil
	}
	return types.Tick{}, nil
}

func (f *Fake) SymbolSelect(ctx context.Context, symbol string) error { return nil }

// OrderSend simulates broker filling-mode acceptance/rejection and, on a
// successful deal, assigns the next synthetic slave ticket and appends the
// position to whatever account is currently selected.
func (f *Fake) OrderSend(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, req)

	if f.OrderSendErr != nil {
		return types.OrderResult{}, f.OrderSendErr
	}

	if want, ok := f.FillingModes[req.Symbol]; ok && req.Action == types.ActionDeal && req.FillingMode != want {
		return types.OrderResult{Retcode: types.RetcodeInvalidFill, Comment: "Unsupported filling mode"}, nil
	}

	if req.Action == types.ActionSLTP {
		for i, p := range f.positions[f.currentSide] {
			if p.Ticket == req.Position {
				f.positions[f.currentSide][i].SL = req.SL
				f.positions[f.currentSide][i].TP = req.TP
				return types.OrderResult{Retcode: types.RetcodeDone}, nil
			}
		}
		return types.OrderResult{Retcode: types.RetcodeOther, Comment: "position not found"}, nil
	}

	// Close-by-position: volume/side mirror an existing slave position.
	if req.Position != 0 {
		list := f.positions[f.currentSide]
		for i, p := range list {
			if p.Ticket == req.Position {
				f.positions[f.currentSide] = append(list[:i], list[i+1:]...)
				return types.OrderResult{Retcode: types.RetcodeDone, Order: req.Position}, nil
			}
		}
		return types.OrderResult{Retcode: types.RetcodeOther, Comment: "position not found"}, nil
	}

	f.nextTicket++
	ticket := f.nextTicket
	f.positions[f.currentSide] = append(f.positions[f.currentSide], types.Position{
		Ticket: ticket,
		Symbol: req.Symbol,
		Side:   req.Side,
		Volume: req.Volume,
		SL:     req.SL,
		TP:     req.TP,
	})
	return types.OrderResult{Retcode: types.RetcodeDone, Order: ticket}, nil
}

// ErrLoginRejected is a canned error for tests that exercise the
// transient-session failure path.
var ErrLoginRejected = errors.New("login rejected")
