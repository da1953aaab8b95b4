package config

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mt5copier/tradecopier/pkg/types"
)

func TestWriteMappingThenLoadRoundTrips(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "symbol_mapping.csv")

	mappings := []types.SymbolMapping{
		{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
		{MasterSymbol: "XAUUSD", SlaveSymbol: "XAUUSD.m", LotMultiplier: decimal.NewFromFloat(0.5)},
	}
	if err := WriteMapping(path, mappings); err != nil {
		t.Fatalf("WriteMapping: %v", err)
	}

	got, err := LoadMapping(path)
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if len(got) != 2 || got[1].SlaveSymbol != "XAUUSD.m" {
		t.Fatalf("got = %+v", got)
	}
}

func TestUpsertMappingReplacesExistingEntry(t *testing.T) {
	t.Parallel()
	original := []types.SymbolMapping{
		{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
	}
	updated := UpsertMapping(original, types.SymbolMapping{
		MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-ECN", LotMultiplier: decimal.NewFromFloat(2.0),
	})

	if len(updated) != 1 {
		t.Fatalf("len(updated) = %d, want 1", len(updated))
	}
	if updated[0].SlaveSymbol != "EURUSD-ECN" {
		t.Errorf("updated[0].SlaveSymbol = %q, want EURUSD-ECN", updated[0].SlaveSymbol)
	}
	if original[0].SlaveSymbol != "EURUSD-STD" {
		t.Error("UpsertMapping mutated its input slice")
	}
}

func TestUpsertMappingAppendsNewEntry(t *testing.T) {
	t.Parallel()
	original := []types.SymbolMapping{
		{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
	}
	updated := UpsertMapping(original, types.SymbolMapping{
		MasterSymbol: "XAUUSD", SlaveSymbol: "XAUUSD.m", LotMultiplier: decimal.NewFromFloat(0.5),
	})

	if len(updated) != 2 {
		t.Fatalf("len(updated) = %d, want 2", len(updated))
	}
}

func TestDeleteMappingRemovesByMasterSymbol(t *testing.T) {
	t.Parallel()
	original := []types.SymbolMapping{
		{MasterSymbol: "EURUSD", SlaveSymbol: "EURUSD-STD", LotMultiplier: decimal.NewFromFloat(1.0)},
		{MasterSymbol: "XAUUSD", SlaveSymbol: "XAUUSD.m", LotMultiplier: decimal.NewFromFloat(0.5)},
	}
	updated := DeleteMapping(original, "EURUSD")

	if len(updated) != 1 || updated[0].MasterSymbol != "XAUUSD" {
		t.Fatalf("updated = %+v", updated)
	}
}
