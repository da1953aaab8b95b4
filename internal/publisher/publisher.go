package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const stateFilename = "master_state.json"

// Publisher owns the atomic file writer and, if enabled, the read-only HTTP
// server for the master-state snapshot. It never issues orders and never
// switches accounts — callers only ever feed it snapshots built from
// master-side positions_get polls.
//
// The atomic file write is the usual write-to-.tmp-then-os.Rename
// pattern, extended here with byte-equality memoisation: a write is only
// issued when the serialised payload, with LastUpdated left out, differs
// from the last one written.
type Publisher struct {
	outputDir string

	mu      sync.Mutex
	lastKey []byte

	latest atomic.Pointer[[]byte]
	server *http.Server
	logger *slog.Logger
}

// New creates a Publisher writing to outputDir. If httpPort is non-zero, an
// HTTP server bound to 127.0.0.1 is started by Start serving the snapshot.
func New(outputDir string, httpPort int, logger *slog.Logger) *Publisher {
	p := &Publisher{
		outputDir: outputDir,
		logger:    logger.With("component", "publisher"),
	}
	if httpPort > 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/", p.handleState)
		p.server = &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", httpPort),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}
	return p
}

// Start launches the HTTP listener, if configured. It returns immediately;
// serve errors other than a clean Shutdown are logged.
func (p *Publisher) Start() {
	if p.server == nil {
		return
	}
	go func() {
		p.logger.Info("publisher http server starting", "addr", p.server.Addr)
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			p.logger.Error("publisher http server stopped", "error", err)
		}
	}()
}

// Stop shuts the HTTP listener down, if running.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}

// Publish serialises state and, iff its symbol mapping and positions differ
// from the previously published payload, atomically rewrites
// master_state.json. LastUpdated is excluded from that comparison: it
// advances every poll regardless of whether the underlying data changed, so
// comparing it byte-for-byte would defeat the memoisation entirely and
// rewrite the file on every tick. The HTTP-served snapshot is always
// refreshed with the current timestamp, independent of the memoisation
// check, so a client polling the endpoint never sees a stale body even when
// the file itself hasn't changed.
func (p *Publisher) Publish(state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	p.latest.Store(&payload)

	comparable := state
	comparable.LastUpdated = 0
	key, err := json.Marshal(comparable)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if bytes.Equal(key, p.lastKey) {
		return nil
	}

	path := filepath.Join(p.outputDir, stateFilename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	p.lastKey = key
	return nil
}

func (p *Publisher) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/state", "/master_state.json":
	default:
		http.NotFound(w, r)
		return
	}

	body := p.latest.Load()
	w.Header().Set("Content-Type", "application/json")
	if body == nil {
		w.Write([]byte("{}"))
		return
	}
	w.Write(*body)
}
