package broker

import (
	"sync"

	"github.com/mt5copier/tradecopier/pkg/types"
)

// FillCache remembers the last broker-accepted filling mode per slave
// symbol. Entries are written on a DONE order-send and
// purged on INVALID_FILL, so the cache only ever holds modes the broker has
// actually accepted in practice.
//
// Reads and writes are mutex-protected: the replication engine itself is
// single-threaded, but the cache is exercised from tests and may be shared
// across a multi-threaded reimplementation, so it does not assume a
// lock-free caller.
type FillCache struct {
	mu    sync.Mutex
	modes map[string]types.FillingMode
}

// NewFillCache creates an empty cache. The cache is never persisted across
// process restarts — discovery is cheap relative to engine uptime.
func NewFillCache() *FillCache {
	return &FillCache{modes: make(map[string]types.FillingMode)}
}

// Get returns the cached mode for a symbol, if any.
func (c *FillCache) Get(symbol string) (types.FillingMode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.modes[symbol]
	return m, ok
}

// Set records the mode the broker accepted for a symbol.
func (c *FillCache) Set(symbol string, mode types.FillingMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes[symbol] = mode
}

// Invalidate removes a symbol's cached mode, e.g. after an INVALID_FILL
// rejection of what the cache suggested.
func (c *FillCache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.modes, symbol)
}
