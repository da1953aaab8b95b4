package engine

import (
	"context"
	"time"

	"github.com/mt5copier/tradecopier/internal/broker"
	"github.com/mt5copier/tradecopier/pkg/types"
)

// sendResult is the outcome of sendWithDiscovery: the broker's reply, the
// filling mode that produced it, and the measured round-trip latency.
type sendResult struct {
	result  types.OrderResult
	mode    types.FillingMode
	latency time.Duration
}

// sendWithDiscovery submits a market-deal request, choosing the filling
// mode from the per-symbol cache if present, otherwise walking the fixed
// discovery sequence IOC, FOK, RETURN. A cached mode the broker rejects
// with INVALID_FILL is purged and discovery continues over the remaining
// modes within the same call. buildReq is called once per attempted mode
// so the caller can stamp FillingMode onto an otherwise-identical request.
func sendWithDiscovery(
	ctx context.Context,
	client broker.Client,
	fills *broker.FillCache,
	symbol string,
	buildReq func(mode types.FillingMode) types.OrderRequest,
) (sendResult, error) {
	var tried *types.FillingMode
	if cached, ok := fills.Get(symbol); ok {
		start := time.Now()
		result, err := client.OrderSend(ctx, buildReq(cached))
		latency := time.Since(start)
		if err != nil {
			return sendResult{}, err
		}
		if result.Retcode != types.RetcodeInvalidFill {
			return sendResult{result: result, mode: cached, latency: latency}, nil
		}
		// The broker no longer accepts what the cache suggested: purge the
		// entry and fall through to discovery, skipping the mode just tried.
		fills.Invalidate(symbol)
		tried = &cached
	}

	var last sendResult
	for _, mode := range types.FillingDiscoveryOrder {
		if tried != nil && mode == *tried {
			continue
		}
		start := time.Now()
		result, err := client.OrderSend(ctx, buildReq(mode))
		latency := time.Since(start)
		if err != nil {
			return sendResult{}, err
		}
		last = sendResult{result: result, mode: mode, latency: latency}

		if result.Retcode == types.RetcodeDone {
			fills.Set(symbol, mode)
			return last, nil
		}
		if result.Retcode == types.RetcodeInvalidFill {
			continue
		}
		// Any other failure: stop trying further modes for this position.
		return last, nil
	}
	return last, nil
}
