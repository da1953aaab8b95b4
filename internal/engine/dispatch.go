package engine

import (
	"context"
	"time"

	"github.com/mt5copier/tradecopier/internal/audit"
	"github.com/mt5copier/tradecopier/pkg/types"
)

const (
	closeDeviationFallback = 35
	openComment            = "Copied Trade"
	closeComment           = "Closed by Copier"
)

// dispatchOpen resolves the mapping, sizes the slave volume, and sends a
// market deal, walking the filling-mode discovery sequence if no cached
// mode exists for the symbol.
func (e *Engine) dispatchOpen(ctx context.Context, p types.Position) {
	mapping, ok := e.mapping[p.Symbol]
	if !ok {
		if _, logged := e.unmappedLogged[p.Symbol]; !logged {
			e.logger.Warn("skipping open: symbol not in mapping", "symbol", p.Symbol, "master_ticket", p.Ticket)
			e.unmappedLogged[p.Symbol] = struct{}{}
		}
		return
	}

	volume := mapping.EffectiveVolume(p.Volume)

	client := e.session.Client()
	if err := client.SymbolSelect(ctx, mapping.SlaveSymbol); err != nil {
		e.logger.Warn("open failed: symbol_select", "symbol", mapping.SlaveSymbol, "error", err)
		return
	}
	tick, err := client.SymbolInfoTick(ctx, mapping.SlaveSymbol)
	if err != nil {
		e.logger.Warn("open failed: symbol_info_tick", "symbol", mapping.SlaveSymbol, "error", err)
		return
	}
	price := tick.Price(p.Side)

	sent, err := sendWithDiscovery(ctx, client, e.fills, mapping.SlaveSymbol, func(mode types.FillingMode) types.OrderRequest {
		return types.OrderRequest{
			Action:      types.ActionDeal,
			Symbol:      mapping.SlaveSymbol,
			Side:        p.Side,
			Volume:      volume,
			Price:       price,
			SL:          p.SL,
			TP:          p.TP,
			Deviation:   e.openDevPts,
			Magic:       e.magic,
			Comment:     openComment,
			FillingMode: mode,
			TimeMode:    types.TimeGTC,
		}
	})
	if err != nil {
		e.logger.Warn("open failed: order_send", "master_ticket", p.Ticket, "error", err)
		return
	}

	if sent.result.Retcode != types.RetcodeDone {
		e.logger.Warn("open not filled", "master_ticket", p.Ticket, "retcode", sent.result.Retcode, "comment", sent.result.Comment)
		return
	}

	e.ticketMap[p.Ticket] = MappedTicket{SlaveTicket: sent.result.Order, SL: p.SL, TP: p.TP}

	if err := e.auditW.WriteOpen(audit.OpenRecord{
		Time:         time.Now(),
		MasterTicket: p.Ticket,
		SlaveTicket:  sent.result.Order,
		MasterSymbol: p.Symbol,
		SlaveSymbol:  mapping.SlaveSymbol,
		MasterLot:    p.Volume,
		SlaveLot:     volume,
		Side:         p.Side,
		Price:        price,
		SL:           p.SL,
		TP:           p.TP,
		Filling:      sent.mode,
		LatencyMS:    sent.latency.Milliseconds(),
	}); err != nil {
		e.logger.Error("audit write failed", "error", err)
	}
}

// dispatchMod syncs SL/TP on a position already mirrored. Failures are not
// retried here — the next poll's diff re-derives the mismatch and tries
// again.
func (e *Engine) dispatchMod(ctx context.Context, m ModEvent) {
	client := e.session.Client()
	start := time.Now()
	result, err := client.OrderSend(ctx, types.OrderRequest{
		Action:   types.ActionSLTP,
		Symbol:   m.Master.Symbol,
		Position: m.SlaveTicket,
		SL:       m.Master.SL,
		TP:       m.Master.TP,
	})
	latency := time.Since(start)
	if err != nil {
		e.logger.Warn("sl/tp sync failed: order_send", "master_ticket", m.Master.Ticket, "error", err)
		return
	}
	if result.Retcode != types.RetcodeDone {
		e.logger.Warn("sl/tp sync not applied", "master_ticket", m.Master.Ticket, "retcode", result.Retcode, "comment", result.Comment)
		return
	}

	e.ticketMap[m.Master.Ticket] = MappedTicket{SlaveTicket: m.SlaveTicket, SL: m.Master.SL, TP: m.Master.TP}

	if err := e.auditW.WriteModify(audit.ModifyRecord{
		Time:         time.Now(),
		MasterTicket: m.Master.Ticket,
		SlaveTicket:  m.SlaveTicket,
		Symbol:       m.Master.Symbol,
		SL:           m.Master.SL,
		TP:           m.Master.TP,
		LatencyMS:    latency.Milliseconds(),
	}); err != nil {
		e.logger.Error("audit write failed", "error", err)
	}
}

// dispatchClose closes the slave side of a position that disappeared from
// the master snapshot. A slave position already gone (externally closed)
// purges the mapping entry silently.
func (e *Engine) dispatchClose(ctx context.Context, masterTicket uint64) {
	entry, ok := e.ticketMap[masterTicket]
	if !ok {
		return
	}

	client := e.session.Client()
	slavePos, err := client.PositionByTicket(ctx, entry.SlaveTicket)
	if err != nil {
		e.logger.Warn("close failed: position_by_ticket", "master_ticket", masterTicket, "error", err)
		return
	}
	if slavePos == nil {
		delete(e.ticketMap, masterTicket)
		return
	}

	closeSide := slavePos.Side.Opposite()
	if err := client.SymbolSelect(ctx, slavePos.Symbol); err != nil {
		e.logger.Warn("close failed: symbol_select", "symbol", slavePos.Symbol, "error", err)
		return
	}
	tick, err := client.SymbolInfoTick(ctx, slavePos.Symbol)
	if err != nil {
		e.logger.Warn("close failed: symbol_info_tick", "symbol", slavePos.Symbol, "error", err)
		return
	}
	price := tick.Price(closeSide)

	sent, err := sendWithDiscovery(ctx, client, e.fills, slavePos.Symbol, func(mode types.FillingMode) types.OrderRequest {
		return types.OrderRequest{
			Action:      types.ActionDeal,
			Symbol:      slavePos.Symbol,
			Position:    entry.SlaveTicket,
			Side:        closeSide,
			Volume:      slavePos.Volume,
			Price:       price,
			Deviation:   e.closeDeviation(),
			Magic:       e.magic,
			Comment:     closeComment,
			FillingMode: mode,
			TimeMode:    types.TimeGTC,
		}
	})
	if err != nil {
		e.logger.Warn("close failed: order_send", "master_ticket", masterTicket, "error", err)
		return
	}

	if sent.result.Retcode != types.RetcodeDone {
		e.logger.Warn("close not filled", "master_ticket", masterTicket, "retcode", sent.result.Retcode, "comment", sent.result.Comment)
		return
	}

	delete(e.ticketMap, masterTicket)

	if err := e.auditW.WriteClose(audit.CloseRecord{
		Time:         time.Now(),
		MasterTicket: masterTicket,
		SlaveTicket:  entry.SlaveTicket,
		Symbol:       slavePos.Symbol,
		Volume:       slavePos.Volume,
		Side:         closeSide,
		Filling:      sent.mode,
		LatencyMS:    sent.latency.Milliseconds(),
	}); err != nil {
		e.logger.Error("audit write failed", "error", err)
	}
}

func (e *Engine) closeDeviation() int {
	if e.closeDevPts > 0 {
		return e.closeDevPts
	}
	return closeDeviationFallback
}
