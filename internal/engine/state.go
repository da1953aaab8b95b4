// Package engine implements the replication engine: the polling loop,
// snapshot-diff event derivation, and batched open/modify/close dispatch
// against the slave account.
package engine

import (
	"github.com/shopspring/decimal"
)

// MappedTicket is one entry of the in-memory ticket mapping. SL/TP hold
// the values last synced to the slave, so the next poll's diff can
// detect drift without an extra slave-side query.
type MappedTicket struct {
	SlaveTicket uint64
	SL          decimal.Decimal
	TP          decimal.Decimal
}

// TicketMap maps a master ticket to its mirrored slave entry. It is
// one-way: there is no index from slave ticket back to master ticket.
// Entries are added on successful open and removed on successful close or
// when the slave position is found already gone. An entry's slave ticket
// never changes; its SL/TP fields are rewritten after each successful
// SL/TP sync.
type TicketMap map[uint64]MappedTicket

// IgnoredSet holds master tickets observed before the engine started.
// Immutable after engine start.
type IgnoredSet map[uint64]struct{}
