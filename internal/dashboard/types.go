package dashboard

import (
	"time"

	"github.com/mt5copier/tradecopier/internal/audit"
	"github.com/mt5copier/tradecopier/pkg/types"
)

// MappingRow is the wire shape of one symbol-mapping entry for the
// dashboard's CRUD endpoint — LotMultiplier is rendered as a string so a
// JS client never round-trips it through float64.
type MappingRow struct {
	MasterSymbol string `json:"master_symbol"`
	SlaveSymbol  string `json:"slave_symbol"`
	SlaveLot     string `json:"slave_lot"`
}

func toMappingRow(m types.SymbolMapping) MappingRow {
	return MappingRow{
		MasterSymbol: m.MasterSymbol,
		SlaveSymbol:  m.SlaveSymbol,
		SlaveLot:     m.LotMultiplier.String(),
	}
}

// LogLine is the wire shape of one parsed audit-log record.
type LogLine struct {
	Raw          string    `json:"raw"`
	Time         time.Time `json:"time"`
	Close        bool      `json:"close"`
	Modify       bool      `json:"modify"`
	MasterTicket uint64    `json:"master_ticket"`
	SlaveTicket  uint64    `json:"slave_ticket"`
	Symbol       string    `json:"symbol"`
	Filling      string    `json:"filling,omitempty"`
	LatencyMS    int64     `json:"latency_ms"`
}

func toLogLine(raw string, rec audit.Record) LogLine {
	symbol := rec.Symbol
	if symbol == "" && rec.MasterSymbol != "" {
		symbol = rec.MasterSymbol + "->" + rec.SlaveSymbol
	}
	return LogLine{
		Raw:          raw,
		Time:         rec.Time,
		Close:        rec.Close,
		Modify:       rec.Modify,
		MasterTicket: rec.MasterTicket,
		SlaveTicket:  rec.SlaveTicket,
		Symbol:       symbol,
		Filling:      rec.Filling.String(),
		LatencyMS:    rec.LatencyMS,
	}
}

// ProcessStatus reports whether the engine subprocess is currently running.
type ProcessStatus struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Error   string `json:"error,omitempty"`
}
