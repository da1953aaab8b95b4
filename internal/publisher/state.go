// Package publisher implements the master-state snapshot variant: it logs
// into the master account only, polls positions_get, and publishes a
// compact read-only JSON snapshot for an external consumer in the broker's
// own terminal.
package publisher

import (
	"github.com/mt5copier/tradecopier/pkg/types"
)

// MappingEntry is one row of the symbol-mapping table as it appears in the
// published snapshot.
type MappingEntry struct {
	MasterSymbol string `json:"master_symbol"`
	SlaveSymbol  string `json:"slave_symbol"`
	SlaveLot     string `json:"slave_lot"`
}

// PositionEntry is one open master position as it appears in the published
// snapshot.
type PositionEntry struct {
	Ticket    uint64 `json:"ticket"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Volume    string `json:"volume"`
	PriceOpen string `json:"price_open"`
	SL        string `json:"sl"`
	TP        string `json:"tp"`
	Time      int64  `json:"time"`
	Comment   string `json:"comment"`
}

// State is the full published snapshot.
type State struct {
	LastUpdated   float64         `json:"last_updated"`
	SymbolMapping []MappingEntry  `json:"symbol_mapping"`
	Positions     []PositionEntry `json:"positions"`
}

// BuildState assembles a snapshot from the current mapping table and master
// positions. unixSeconds is passed in rather than computed here so the
// function stays pure and testable (byte-equality memoisation depends on
// deterministic output for identical inputs aside from the timestamp).
func BuildState(mapping []types.SymbolMapping, positions []types.Position, unixSeconds float64) State {
	s := State{
		LastUpdated:   unixSeconds,
		SymbolMapping: make([]MappingEntry, 0, len(mapping)),
		Positions:     make([]PositionEntry, 0, len(positions)),
	}
	for _, m := range mapping {
		s.SymbolMapping = append(s.SymbolMapping, MappingEntry{
			MasterSymbol: m.MasterSymbol,
			SlaveSymbol:  m.SlaveSymbol,
			SlaveLot:     m.LotMultiplier.String(),
		})
	}
	for _, p := range positions {
		s.Positions = append(s.Positions, PositionEntry{
			Ticket:    p.Ticket,
			Symbol:    p.Symbol,
			Type:      p.Side.String(),
			Volume:    p.Volume.String(),
			PriceOpen: p.PriceOpen.String(),
			SL:        p.SL.String(),
			TP:        p.TP.String(),
			Time:      p.OpenTime.Unix(),
			Comment:   p.Comment,
		})
	}
	return s
}
