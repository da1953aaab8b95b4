// Package audit implements the engine's append-only order log: one line
// per successful dispatch, in a deliberately regular pipe-delimited
// format so the dashboard can parse it with a simple splitter rather
// than a real log-parsing library.
package audit

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/mt5copier/tradecopier/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// Writer appends order-log lines to a single file, opened once at
// construction with O_APPEND|O_CREATE|O_WRONLY. Each Write call flushes
// immediately so a killed process never loses a record that was already
// reported as dispatched.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// Open creates or appends to the order log at path.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Writer{file: f, buf: bufio.NewWriter(f)}, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// OpenRecord describes a successful master-open mirrored to the slave.
type OpenRecord struct {
	Time         time.Time
	MasterTicket uint64
	SlaveTicket  uint64
	MasterSymbol string
	SlaveSymbol  string
	MasterLot    decimal.Decimal
	SlaveLot     decimal.Decimal
	Side         types.Side
	Price        decimal.Decimal
	SL           decimal.Decimal
	TP           decimal.Decimal
	Filling      types.FillingMode
	LatencyMS    int64
}

// WriteOpen appends an open-action line.
func (w *Writer) WriteOpen(r OpenRecord) error {
	line := fmt.Sprintf(
		"%s | MASTER_TICKET=%d | SLAVE_TICKET=%d | %s->%s | MASTER_LOT=%s | SLAVE_LOT=%s | TYPE=%s | PRICE=%s | SL=%s | TP=%s | FILLING=%s | LATENCY_MS=%d\n",
		r.Time.Format(timeLayout), r.MasterTicket, r.SlaveTicket,
		r.MasterSymbol, r.SlaveSymbol, r.MasterLot.String(), r.SlaveLot.String(),
		r.Side.String(), r.Price.String(), r.SL.String(), r.TP.String(),
		r.Filling.String(), r.LatencyMS,
	)
	return w.writeLine(line)
}

// CloseRecord describes a successful master-close mirrored to the slave.
type CloseRecord struct {
	Time         time.Time
	MasterTicket uint64
	SlaveTicket  uint64
	Symbol       string
	Volume       decimal.Decimal
	Side         types.Side
	Filling      types.FillingMode
	LatencyMS    int64
}

// WriteClose appends a close-action line.
func (w *Writer) WriteClose(r CloseRecord) error {
	line := fmt.Sprintf(
		"%s | CLOSE | MASTER_TICKET=%d | SLAVE_TICKET=%d | SYMBOL=%s | VOLUME=%s | TYPE=%s | FILLING=%s | LATENCY_MS=%d\n",
		r.Time.Format(timeLayout), r.MasterTicket, r.SlaveTicket,
		r.Symbol, r.Volume.String(), r.Side.String(), r.Filling.String(), r.LatencyMS,
	)
	return w.writeLine(line)
}

// ModifyRecord describes a successful SL/TP sync to the slave. It is
// modelled the same way as CloseRecord's "tag word" shape for the
// dashboard's splitter to stay uniform.
type ModifyRecord struct {
	Time         time.Time
	MasterTicket uint64
	SlaveTicket  uint64
	Symbol       string
	SL           decimal.Decimal
	TP           decimal.Decimal
	LatencyMS    int64
}

// WriteModify appends a modify-action line.
func (w *Writer) WriteModify(r ModifyRecord) error {
	line := fmt.Sprintf(
		"%s | MODIFY | MASTER_TICKET=%d | SLAVE_TICKET=%d | SYMBOL=%s | SL=%s | TP=%s | LATENCY_MS=%d\n",
		r.Time.Format(timeLayout), r.MasterTicket, r.SlaveTicket,
		r.Symbol, r.SL.String(), r.TP.String(), r.LatencyMS,
	)
	return w.writeLine(line)
}

func (w *Writer) writeLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.WriteString(line); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}
	return w.buf.Flush()
}
