package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/mt5copier/tradecopier/pkg/types"
)

func pos(ticket uint64, symbol string, sl, tp string) types.Position {
	return types.Position{
		Ticket: ticket,
		Symbol: symbol,
		SL:     decimal.RequireFromString(sl),
		TP:     decimal.RequireFromString(tp),
	}
}

func TestDeriveOpensExcludesIgnoredAndMapped(t *testing.T) {
	t.Parallel()
	positions := []types.Position{
		pos(100, "EURUSD", "0", "0"),
		pos(101, "XAUUSD", "0", "0"),
		pos(102, "GBPUSD", "0", "0"),
	}
	ignored := IgnoredSet{100: struct{}{}}
	mapped := TicketMap{101: {SlaveTicket: 9001}}

	opens := DeriveOpens(positions, ignored, mapped)
	if len(opens) != 1 || opens[0].Ticket != 102 {
		t.Fatalf("opens = %+v, want only ticket 102", opens)
	}
}

func TestDeriveOpensIsAscendingTicketOrder(t *testing.T) {
	t.Parallel()
	positions := []types.Position{
		pos(300, "A", "0", "0"),
		pos(100, "B", "0", "0"),
		pos(200, "C", "0", "0"),
	}
	opens := DeriveOpens(positions, IgnoredSet{}, TicketMap{})
	if len(opens) != 3 {
		t.Fatalf("len(opens) = %d, want 3", len(opens))
	}
	for i := 1; i < len(opens); i++ {
		if opens[i-1].Ticket > opens[i].Ticket {
			t.Fatalf("opens not ascending: %+v", opens)
		}
	}
}

func TestDeriveModsDetectsSLTPDrift(t *testing.T) {
	t.Parallel()
	positions := []types.Position{
		pos(101, "XAUUSD", "2310", "2410"),
	}
	mapped := TicketMap{101: {SlaveTicket: 9001, SL: decimal.RequireFromString("2300"), TP: decimal.RequireFromString("2400")}}

	mods := DeriveMods(positions, mapped)
	if len(mods) != 1 || mods[0].Master.Ticket != 101 || mods[0].SlaveTicket != 9001 {
		t.Fatalf("mods = %+v", mods)
	}
}

func TestDeriveModsIgnoresUnchangedSLTP(t *testing.T) {
	t.Parallel()
	positions := []types.Position{
		pos(101, "XAUUSD", "2300", "2400"),
	}
	mapped := TicketMap{101: {SlaveTicket: 9001, SL: decimal.RequireFromString("2300"), TP: decimal.RequireFromString("2400")}}

	mods := DeriveMods(positions, mapped)
	if len(mods) != 0 {
		t.Fatalf("expected no mods, got %+v", mods)
	}
}

func TestDeriveClosesFindsMissingMasterTickets(t *testing.T) {
	t.Parallel()
	positions := []types.Position{
		pos(102, "GBPUSD", "0", "0"),
	}
	mapped := TicketMap{
		101: {SlaveTicket: 9001},
		102: {SlaveTicket: 9002},
	}

	closes := DeriveCloses(positions, mapped)
	if len(closes) != 1 || closes[0] != 101 {
		t.Fatalf("closes = %v, want [101]", closes)
	}
}

func TestDeriveClosesAscendingOrder(t *testing.T) {
	t.Parallel()
	mapped := TicketMap{
		300: {SlaveTicket: 1},
		100: {SlaveTicket: 2},
		200: {SlaveTicket: 3},
	}
	closes := DeriveCloses(nil, mapped)
	if len(closes) != 3 || closes[0] != 100 || closes[1] != 200 || closes[2] != 300 {
		t.Fatalf("closes = %v, want ascending [100 200 300]", closes)
	}
}
