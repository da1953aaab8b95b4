package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/mt5copier/tradecopier/pkg/types"
)

// Record is a parsed order-log line, used by the dashboard's log-tail
// endpoint and by tests asserting the audit-log testable properties.
type Record struct {
	Time         time.Time
	Close        bool
	Modify       bool
	MasterTicket uint64
	SlaveTicket  uint64
	MasterSymbol string // open only
	SlaveSymbol  string // open only
	Symbol       string // close and modify only
	MasterLot    decimal.Decimal
	SlaveLot     decimal.Decimal
	Volume       decimal.Decimal // close only
	Side         types.Side
	Price        decimal.Decimal
	SL           decimal.Decimal
	TP           decimal.Decimal
	Filling      types.FillingMode
	LatencyMS    int64
}

// ParseLine parses one order-log line, splitting on " | " the same way the
// dashboard does. It accepts the open-, close- and modify-action formats.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\n"), " | ")
	if len(fields) < 2 {
		return Record{}, fmt.Errorf("malformed audit line: too few fields")
	}

	var rec Record
	t, err := time.Parse(timeLayout, fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("parse timestamp: %w", err)
	}
	rec.Time = t

	for _, field := range fields[1:] {
		if field == "CLOSE" {
			rec.Close = true
			continue
		}
		if field == "MODIFY" {
			rec.Modify = true
			continue
		}
		if sym, ok := splitArrow(field); ok {
			rec.MasterSymbol, rec.SlaveSymbol = sym[0], sym[1]
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return Record{}, fmt.Errorf("malformed audit field: %q", field)
		}
		if err := assignField(&rec, key, value); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func splitArrow(field string) ([2]string, bool) {
	before, after, ok := strings.Cut(field, "->")
	if !ok {
		return [2]string{}, false
	}
	return [2]string{before, after}, true
}

func assignField(rec *Record, key, value string) error {
	var err error
	switch key {
	case "MASTER_TICKET":
		rec.MasterTicket, err = strconv.ParseUint(value, 10, 64)
	case "SLAVE_TICKET":
		rec.SlaveTicket, err = strconv.ParseUint(value, 10, 64)
	case "MASTER_LOT":
		rec.MasterLot, err = decimal.NewFromString(value)
	case "SLAVE_LOT":
		rec.SlaveLot, err = decimal.NewFromString(value)
	case "SYMBOL":
		rec.Symbol = value
	case "VOLUME":
		rec.Volume, err = decimal.NewFromString(value)
	case "TYPE":
		rec.Side = parseSide(value)
	case "PRICE":
		rec.Price, err = decimal.NewFromString(value)
	case "SL":
		rec.SL, err = decimal.NewFromString(value)
	case "TP":
		rec.TP, err = decimal.NewFromString(value)
	case "FILLING":
		rec.Filling = parseFillingMode(value)
	case "LATENCY_MS":
		rec.LatencyMS, err = strconv.ParseInt(value, 10, 64)
	default:
		return fmt.Errorf("unknown audit field key: %q", key)
	}
	if err != nil {
		return fmt.Errorf("parse field %s=%s: %w", key, value, err)
	}
	return nil
}

func parseSide(value string) types.Side {
	if value == "SELL" {
		return types.SELL
	}
	return types.BUY
}

func parseFillingMode(value string) types.FillingMode {
	switch value {
	case "FOK":
		return types.FillingFOK
	case "RETURN":
		return types.FillingReturn
	default:
		return types.FillingIOC
	}
}
