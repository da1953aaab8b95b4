package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadMappingParsesRows(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "symbol_mapping.csv", `master_symbol,slave_symbol,slave_lot
EURUSD,EURUSD-STD,1.0
XAUUSD,XAUUSD.m,0.5
`)

	mappings, err := LoadMapping(path)
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("len(mappings) = %d, want 2", len(mappings))
	}
	if mappings[1].MasterSymbol != "XAUUSD" || mappings[1].SlaveSymbol != "XAUUSD.m" {
		t.Errorf("mappings[1] = %+v", mappings[1])
	}
	if !mappings[1].LotMultiplier.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("LotMultiplier = %s, want 0.5", mappings[1].LotMultiplier)
	}
}

func TestLoadMappingRejectsNonPositiveLot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "symbol_mapping.csv", `master_symbol,slave_symbol,slave_lot
EURUSD,EURUSD-STD,0
`)

	if _, err := LoadMapping(path); err == nil {
		t.Fatal("expected error for slave_lot <= 0")
	}
}

func TestLoadMappingRejectsMissingColumn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "symbol_mapping.csv", "master_symbol,slave_symbol\nEURUSD,EURUSD-STD\n")

	if _, err := LoadMapping(path); err == nil {
		t.Fatal("expected error for missing slave_lot column")
	}
}

func TestMappingBySymbolIndexesByMasterSymbol(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "symbol_mapping.csv", `master_symbol,slave_symbol,slave_lot
EURUSD,EURUSD-STD,1.0
`)
	mappings, err := LoadMapping(path)
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	bySym := MappingBySymbol(mappings)
	if _, ok := bySym["EURUSD"]; !ok {
		t.Fatal("expected EURUSD key in index")
	}
}
