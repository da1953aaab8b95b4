package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/mt5copier/tradecopier/pkg/types"
)

// LoadMapping parses the master_symbol,slave_symbol,slave_lot tabular file.
// Any missing column is a fatal config error. A row whose slave_lot is <= 0
// is rejected outright rather than silently defaulted, since a bad
// multiplier would otherwise size every mirrored order wrong.
func LoadMapping(path string) ([]types.SymbolMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol mapping file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse symbol mapping file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("symbol mapping file is empty")
	}

	header := records[0]
	cols := map[string]int{"master_symbol": -1, "slave_symbol": -1, "slave_lot": -1}
	for i, col := range header {
		name := strings.TrimSpace(col)
		if _, ok := cols[name]; ok {
			cols[name] = i
		}
	}
	for name, idx := range cols {
		if idx == -1 {
			return nil, fmt.Errorf("symbol mapping file missing required column %q", name)
		}
	}

	mappings := make([]types.SymbolMapping, 0, len(records)-1)
	for lineNo, row := range records[1:] {
		master := strings.TrimSpace(row[cols["master_symbol"]])
		slave := strings.TrimSpace(row[cols["slave_symbol"]])
		lotStr := strings.TrimSpace(row[cols["slave_lot"]])

		lot, err := decimal.NewFromString(lotStr)
		if err != nil {
			return nil, fmt.Errorf("mapping row %d: parse slave_lot %q: %w", lineNo+2, lotStr, err)
		}
		if !lot.IsPositive() {
			return nil, fmt.Errorf("mapping row %d: slave_lot must be > 0, got %s", lineNo+2, lotStr)
		}

		mappings = append(mappings, types.SymbolMapping{
			MasterSymbol:  master,
			SlaveSymbol:   slave,
			LotMultiplier: lot,
		})
	}
	return mappings, nil
}

// MappingBySymbol indexes a mapping slice by master symbol, for O(1)
// per-position lookups during the replication poll loop.
func MappingBySymbol(mappings []types.SymbolMapping) map[string]types.SymbolMapping {
	out := make(map[string]types.SymbolMapping, len(mappings))
	for _, m := range mappings {
		out[m.MasterSymbol] = m
	}
	return out
}

// WriteMapping rewrites the symbol-mapping file with exactly the given
// rows, in order. The dashboard's mapping CRUD endpoint reads the file
// with LoadMapping, mutates the in-memory slice, and calls WriteMapping
// to persist — there is no partial-update story; the file is always
// rewritten whole rather than patched in place.
func WriteMapping(path string, mappings []types.SymbolMapping) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create symbol mapping file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"master_symbol", "slave_symbol", "slave_lot"}); err != nil {
		return fmt.Errorf("write symbol mapping header: %w", err)
	}
	for _, m := range mappings {
		row := []string{m.MasterSymbol, m.SlaveSymbol, m.LotMultiplier.String()}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write symbol mapping row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// UpsertMapping replaces the entry for entry.MasterSymbol if one exists, or
// appends it, returning the new full set. It does not touch disk; callers
// persist the result with WriteMapping.
func UpsertMapping(mappings []types.SymbolMapping, entry types.SymbolMapping) []types.SymbolMapping {
	for i, m := range mappings {
		if m.MasterSymbol == entry.MasterSymbol {
			out := append([]types.SymbolMapping(nil), mappings...)
			out[i] = entry
			return out
		}
	}
	return append(append([]types.SymbolMapping(nil), mappings...), entry)
}

// DeleteMapping removes the entry keyed by masterSymbol, if present.
func DeleteMapping(mappings []types.SymbolMapping, masterSymbol string) []types.SymbolMapping {
	out := make([]types.SymbolMapping, 0, len(mappings))
	for _, m := range mappings {
		if m.MasterSymbol != masterSymbol {
			out = append(out, m)
		}
	}
	return out
}
