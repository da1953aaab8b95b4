package engine

import (
	"sort"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// ModEvent is a master position whose SL/TP has drifted from what was last
// synced to its mapped slave ticket.
type ModEvent struct {
	Master      types.Position
	SlaveTicket uint64
}

// DeriveOpens returns the master positions that are new to the engine:
// neither pre-existing (IgnoredSet) nor already mapped, in ascending
// ticket order.
func DeriveOpens(positions []types.Position, ignored IgnoredSet, mapped TicketMap) []types.Position {
	var opens []types.Position
	for _, p := range positions {
		if _, isIgnored := ignored[p.Ticket]; isIgnored {
			continue
		}
		if _, isMapped := mapped[p.Ticket]; isMapped {
			continue
		}
		opens = append(opens, p)
	}
	sort.Slice(opens, func(i, j int) bool { return opens[i].Ticket < opens[j].Ticket })
	return opens
}

// DeriveMods returns the mapped master positions whose (sl, tp) no longer
// matches the last value synced to the slave. Ascending ticket order.
func DeriveMods(positions []types.Position, mapped TicketMap) []ModEvent {
	var mods []ModEvent
	for _, p := range positions {
		entry, ok := mapped[p.Ticket]
		if !ok {
			continue
		}
		if !p.SL.Equal(entry.SL) || !p.TP.Equal(entry.TP) {
			mods = append(mods, ModEvent{Master: p, SlaveTicket: entry.SlaveTicket})
		}
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Master.Ticket < mods[j].Master.Ticket })
	return mods
}

// DeriveCloses returns the mapped master tickets that no longer appear in
// the current master snapshot. Ascending ticket order.
func DeriveCloses(positions []types.Position, mapped TicketMap) []uint64 {
	present := make(map[uint64]struct{}, len(positions))
	for _, p := range positions {
		present[p.Ticket] = struct{}{}
	}

	var closes []uint64
	for masterTicket := range mapped {
		if _, ok := present[masterTicket]; !ok {
			closes = append(closes, masterTicket)
		}
	}
	sort.Slice(closes, func(i, j int) bool { return closes[i] < closes[j] })
	return closes
}
