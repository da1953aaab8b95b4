package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/mt5copier/tradecopier/internal/audit"
	"github.com/mt5copier/tradecopier/internal/broker"
	"github.com/mt5copier/tradecopier/internal/broker/brokertest"
	"github.com/mt5copier/tradecopier/internal/config"
	"github.com/mt5copier/tradecopier/pkg/types"
)

const (
	masterLogin = 1001
	slaveLogin  = 2002
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testEngine(t *testing.T, fake *brokertest.Fake, mapping map[string]types.SymbolMapping) (*Engine, string) {
	t.Helper()
	session := broker.NewSession(fake, discardLogger())
	auditPath := filepath.Join(t.TempDir(), "orderlog.txt")
	w, err := audit.Open(auditPath)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	cfg := &config.Runtime{
		PollInterval: 10 * time.Millisecond,
		Deviation:    config.DeviationConfig{Open: 120, Close: 35},
		MagicNumber:  234000,
	}
	e := New(
		session, mapping, broker.NewFillCache(), w, cfg,
		types.CredentialSet{Login: masterLogin, Password: "m", Server: "Broker-Demo"},
		types.CredentialSet{Login: slaveLogin, Password: "s", Server: "Broker-Demo"},
		discardLogger(),
	)
	return e, auditPath
}

func TestScenarioS1PreExistingIsIgnored(t *testing.T) {
	t.Parallel()
	fake := brokertest.New()
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 100, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
	})

	mapping := map[string]types.SymbolMapping{
		"EURUSD": {MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
	}
	e, _ := testEngine(t, fake, mapping)

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.tick(ctx)

	if _, ok := e.ignored[100]; !ok {
		t.Error("expected ticket 100 to be in IgnoredSet")
	}
	if len(fake.Sent()) != 0 {
		t.Errorf("expected no slave orders, got %d", len(fake.Sent()))
	}
}

func TestScenarioS2OpenThenClose(t *testing.T) {
	t.Parallel()
	fake := brokertest.New()
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 100, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
	})
	fake.Ticks["XAUUSD.m"] = types.Tick{Bid: decimal.NewFromFloat(2350), Ask: decimal.NewFromFloat(2350.5)}

	mapping := map[string]types.SymbolMapping{
		"EURUSD": {MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
		"XAUUSD": {MasterSymbol: "XAUUSD", SlaveSymbol: "XAUUSD.m", LotMultiplier: decimal.NewFromFloat(0.5)},
	}
	e, _ := testEngine(t, fake, mapping)

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.tick(ctx) // ticket 100 was recorded as ignored by Start: no new work

	// Master opens a new gold position.
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 100, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
		{
			Ticket: 101, Symbol: "XAUUSD", Side: types.BUY,
			Volume: decimal.NewFromFloat(0.20),
			SL:     decimal.NewFromFloat(2300), TP: decimal.NewFromFloat(2400),
		},
	})
	e.tick(ctx)

	entry, ok := e.ticketMap[101]
	if !ok {
		t.Fatal("expected ticket 101 to be mirrored after open")
	}

	sent := fake.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 order sent for open, got %d", len(sent))
	}
	if !sent[0].Volume.Equal(decimal.NewFromFloat(0.10)) {
		t.Errorf("open volume = %s, want 0.10", sent[0].Volume)
	}
	if sent[0].Side != types.BUY {
		t.Errorf("open side = %v, want BUY", sent[0].Side)
	}

	// Master closes 101.
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 100, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
	})
	e.tick(ctx)

	if _, stillMapped := e.ticketMap[101]; stillMapped {
		t.Error("expected ticket 101 to be removed from TicketMap after close")
	}

	sentAfterClose := fake.Sent()
	last := sentAfterClose[len(sentAfterClose)-1]
	if last.Position != entry.SlaveTicket {
		t.Errorf("close request position = %d, want %d", last.Position, entry.SlaveTicket)
	}
	if last.Side != types.SELL {
		t.Errorf("close side = %v, want SELL (opposite of BUY)", last.Side)
	}
}

func TestDispatchOpenSkipsUnmappedSymbol(t *testing.T) {
	t.Parallel()
	fake := brokertest.New()
	fake.SetPositions(masterLogin, nil)
	e, _ := testEngine(t, fake, map[string]types.SymbolMapping{})

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 500, Symbol: "USDJPY", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
	})
	e.tick(ctx)

	if _, mapped := e.ticketMap[500]; mapped {
		t.Error("expected unmapped symbol to never enter TicketMap")
	}
	if len(fake.Sent()) != 0 {
		t.Errorf("expected no orders sent for unmapped symbol, got %d", len(fake.Sent()))
	}
}

func TestDispatchModSyncsSLTP(t *testing.T) {
	t.Parallel()
	fake := brokertest.New()
	fake.SetPositions(masterLogin, nil)
	fake.Ticks["XAUUSD.m"] = types.Tick{Bid: decimal.NewFromFloat(2350), Ask: decimal.NewFromFloat(2350.5)}
	mapping := map[string]types.SymbolMapping{
		"XAUUSD": {MasterSymbol: "XAUUSD", SlaveSymbol: "XAUUSD.m", LotMultiplier: decimal.NewFromFloat(0.5)},
	}
	e, _ := testEngine(t, fake, mapping)

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 101, Symbol: "XAUUSD", Side: types.BUY, Volume: decimal.NewFromFloat(0.2),
			SL: decimal.NewFromFloat(2300), TP: decimal.NewFromFloat(2400)},
	})
	e.tick(ctx) // opens 101

	// Master modifies SL/TP.
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 101, Symbol: "XAUUSD", Side: types.BUY, Volume: decimal.NewFromFloat(0.2),
			SL: decimal.NewFromFloat(2310), TP: decimal.NewFromFloat(2410)},
	})
	e.tick(ctx)

	entry := e.ticketMap[101]
	if !entry.SL.Equal(decimal.NewFromFloat(2310)) || !entry.TP.Equal(decimal.NewFromFloat(2410)) {
		t.Errorf("ticket map not updated after SL/TP sync: %+v", entry)
	}
}

func TestScenarioS3VolumeClampsToMinimum(t *testing.T) {
	t.Parallel()
	fake := brokertest.New()
	fake.SetPositions(masterLogin, nil)
	fake.Ticks["XAUUSD.m"] = types.Tick{Bid: decimal.NewFromFloat(2350), Ask: decimal.NewFromFloat(2350.5)}
	mapping := map[string]types.SymbolMapping{
		"XAUUSD": {MasterSymbol: "XAUUSD", SlaveSymbol: "XAUUSD.m", LotMultiplier: decimal.NewFromFloat(0.1)},
	}
	e, _ := testEngine(t, fake, mapping)

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 102, Symbol: "XAUUSD", Side: types.SELL, Volume: decimal.NewFromFloat(0.001)},
	})
	e.tick(ctx)

	sent := fake.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 order sent, got %d", len(sent))
	}
	if !sent[0].Volume.Equal(decimal.NewFromFloat(0.01)) {
		t.Errorf("order volume = %s, want clamped 0.01", sent[0].Volume)
	}
}

func TestScenarioS4FillingDiscoveryIsLearnedPerSymbol(t *testing.T) {
	t.Parallel()
	fake := brokertest.New()
	fake.SetPositions(masterLogin, nil)
	fake.Ticks["EURUSD-STD"] = types.Tick{Bid: decimal.NewFromFloat(1.1000), Ask: decimal.NewFromFloat(1.1002)}
	fake.FillingModes["EURUSD-STD"] = types.FillingFOK
	mapping := map[string]types.SymbolMapping{
		"EURUSD": {MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
	}
	e, auditPath := testEngine(t, fake, mapping)

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// First open on the symbol: IOC is rejected, FOK accepted.
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 201, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
	})
	e.tick(ctx)

	sent := fake.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 sends on first open (IOC rejected, FOK accepted), got %d", len(sent))
	}
	if sent[0].FillingMode != types.FillingIOC || sent[1].FillingMode != types.FillingFOK {
		t.Fatalf("modes sent = [%v %v], want [IOC FOK]", sent[0].FillingMode, sent[1].FillingMode)
	}

	// Second open on the same symbol: the learned mode goes out first try.
	fake.SetPositions(masterLogin, []types.Position{
		{Ticket: 201, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(1.0)},
		{Ticket: 202, Symbol: "EURUSD", Side: types.BUY, Volume: decimal.NewFromFloat(0.5)},
	})
	e.tick(ctx)

	sent = fake.Sent()
	if len(sent) != 3 {
		t.Fatalf("expected 1 additional send for the second open, got %d total", len(sent))
	}
	if sent[2].FillingMode != types.FillingFOK {
		t.Errorf("second open mode = %v, want cached FOK", sent[2].FillingMode)
	}

	// Every successful audit line for the symbol records the accepted mode.
	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}
	for i, line := range lines {
		rec, err := audit.ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%d): %v", i, err)
		}
		if rec.Filling != types.FillingFOK {
			t.Errorf("audit line %d FILLING = %v, want FOK", i, rec.Filling)
		}
	}
}
