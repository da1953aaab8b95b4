// Package types holds the domain types shared across the broker session,
// replication engine, audit log, and publisher packages: positions, symbol
// mappings, order requests/results, and the small enums the MT5-style
// broker API exposes (side, filling mode, retcode).
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is a position or order direction.
type Side int

const (
	BUY Side = iota
	SELL
)

func (s Side) String() string {
	if s == SELL {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the side that closes a position of this side.
func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

// FillingMode is a broker's partial-fill handling policy for a market order.
type FillingMode int

const (
	FillingIOC FillingMode = iota
	FillingFOK
	FillingReturn
)

func (m FillingMode) String() string {
	switch m {
	case FillingFOK:
		return "FOK"
	case FillingReturn:
		return "RETURN"
	default:
		return "IOC"
	}
}

// FillingDiscoveryOrder is the fixed sequence tried when no cached filling
// mode exists for a symbol: IOC first (most common, lowest
// slippage envelope), then FOK, then RETURN.
var FillingDiscoveryOrder = []FillingMode{FillingIOC, FillingFOK, FillingReturn}

// Retcode is a broker order-send result code. Only the two the engine
// branches on are named; everything else is treated as "other failure."
type Retcode int

const (
	RetcodeDone Retcode = iota
	RetcodeInvalidFill
	RetcodeOther
)

// Position is an open market exposure at a broker, as returned by
// positions_get. Ticket is unique within one account and stable for the
// position's lifetime. SL/TP of zero mean "unset."
type Position struct {
	Ticket    uint64
	Symbol    string
	Side      Side
	Volume    decimal.Decimal
	PriceOpen decimal.Decimal
	SL        decimal.Decimal
	TP        decimal.Decimal
	OpenTime  time.Time
	Comment   string
}

// SLTP reports the (sl, tp) pair alone, used when diffing master and slave
// positions for out-of-sync stop/take-profit levels.
func (p Position) SLTP() (decimal.Decimal, decimal.Decimal) {
	return p.SL, p.TP
}

// SymbolInfo is the subset of symbol_info the engine consults.
type SymbolInfo struct {
	Symbol      string
	FillingMode FillingMode
}

// Tick is a current bid/ask quote for a symbol.
type Tick struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// Price returns the execution price for opening a position of the given
// side: bid for BUY, ask for SELL.
func (t Tick) Price(side Side) decimal.Decimal {
	if side == SELL {
		return t.Ask
	}
	return t.Bid
}

// TimeInForce is an order's validity policy. GTC (good-till-cancelled) is
// the only policy the copier ever sends; the type exists so the wire
// encoding is explicit about it rather than leaving it implicit in an
// omitted field.
type TimeInForce int

const (
	TimeGTC TimeInForce = iota
)

func (t TimeInForce) String() string {
	return "GTC"
}

// OrderRequest is a market-deal or SL/TP-modify request sent to
// order_send. TimeMode is always TimeGTC for a market deal; it is left
// unset (the zero value, which is also TimeGTC) for an SL/TP-only modify,
// where the broker bridge ignores it.
type OrderRequest struct {
	Action      OrderAction
	Symbol      string
	Position    uint64 // slave ticket, for SLTP modify and close-by-position
	Side        Side
	Volume      decimal.Decimal
	Price       decimal.Decimal
	SL          decimal.Decimal
	TP          decimal.Decimal
	Deviation   int
	Magic       int
	Comment     string
	FillingMode FillingMode
	TimeMode    TimeInForce
}

// OrderAction distinguishes a market deal from an SL/TP-only modify.
type OrderAction int

const (
	ActionDeal OrderAction = iota
	ActionSLTP
)

// OrderResult is the broker's reply to order_send.
type OrderResult struct {
	Retcode Retcode
	Order   uint64 // new slave ticket, set on a successful deal
	Comment string
}

// CredentialSet is one side (master or slave) of the credentials file.
type CredentialSet struct {
	Login    uint64
	Password string
	Server   string
}

// SymbolMapping is one row of the symbol-mapping table, keyed by
// MasterSymbol. LotMultiplier must be > 0; entries failing that are
// rejected at load.
type SymbolMapping struct {
	MasterSymbol  string
	SlaveSymbol   string
	LotMultiplier decimal.Decimal
}

// MinSlaveVolume is the broker-wide minimum order volume; the effective
// slave volume is max(master.volume * lot_multiplier, MinSlaveVolume).
var MinSlaveVolume = decimal.NewFromFloat(0.01)

// EffectiveVolume computes the slave volume for a master volume under a
// mapping's lot multiplier, applying the minimum-volume clamp.
func (m SymbolMapping) EffectiveVolume(masterVolume decimal.Decimal) decimal.Decimal {
	v := masterVolume.Mul(m.LotMultiplier)
	if v.LessThan(MinSlaveVolume) {
		return MinSlaveVolume
	}
	return v
}
