package dashboard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/mt5copier/tradecopier/internal/audit"
	"github.com/mt5copier/tradecopier/internal/config"
	"github.com/mt5copier/tradecopier/pkg/types"
)

const defaultLogTailLines = 200

// Handlers holds the HTTP handler dependencies for the dashboard's routes.
type Handlers struct {
	mappingPath string
	auditPath   string
	allowed     []string
	proc        *ProcessManager
	hub         *Hub
	logger      *slog.Logger
}

// NewHandlers wires the dashboard's handlers to the mapping and audit-log
// files plus the subprocess manager and WebSocket hub.
func NewHandlers(mappingPath, auditPath string, allowedOrigins []string, proc *ProcessManager, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		mappingPath: mappingPath,
		auditPath:   auditPath,
		allowed:     allowedOrigins,
		proc:        proc,
		hub:         hub,
		logger:      logger.With("component", "dashboard-handlers"),
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleProcessStart starts the copier subprocess.
func (h *Handlers) HandleProcessStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.proc.Start(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.writeJSON(w, h.proc.Status())
}

// HandleProcessStop stops the copier subprocess.
func (h *Handlers) HandleProcessStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.proc.Stop(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.proc.Status())
}

// HandleProcessStatus reports whether the copier subprocess is running.
func (h *Handlers) HandleProcessStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.proc.Status())
}

// HandleMapping implements GET (list), POST (upsert), and DELETE (by
// master_symbol) over the symbol-mapping table.
func (h *Handlers) HandleMapping(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listMapping(w, r)
	case http.MethodPost:
		h.upsertMapping(w, r)
	case http.MethodDelete:
		h.deleteMapping(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) listMapping(w http.ResponseWriter, r *http.Request) {
	mappings, err := config.LoadMapping(h.mappingPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows := make([]MappingRow, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, toMappingRow(m))
	}
	h.writeJSON(w, rows)
}

func (h *Handlers) upsertMapping(w http.ResponseWriter, r *http.Request) {
	var row MappingRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	lot, err := decimal.NewFromString(row.SlaveLot)
	if err != nil || !lot.IsPositive() {
		http.Error(w, "slave_lot must be a positive decimal", http.StatusBadRequest)
		return
	}

	mappings, err := config.LoadMapping(h.mappingPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	mappings = config.UpsertMapping(mappings, types.SymbolMapping{
		MasterSymbol:  row.MasterSymbol,
		SlaveSymbol:   row.SlaveSymbol,
		LotMultiplier: lot,
	})
	if err := config.WriteMapping(h.mappingPath, mappings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteMapping(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("master_symbol")
	if symbol == "" {
		http.Error(w, "master_symbol query parameter is required", http.StatusBadRequest)
		return
	}
	mappings, err := config.LoadMapping(h.mappingPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	mappings = config.DeleteMapping(mappings, symbol)
	if err := config.WriteMapping(h.mappingPath, mappings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogTail returns the last N parsed audit-log lines as JSON. N
// defaults to defaultLogTailLines and is overridable with ?n=.
func (h *Handlers) HandleLogTail(w http.ResponseWriter, r *http.Request) {
	n := defaultLogTailLines
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	lines, err := readLastLines(h.auditPath, n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]LogLine, 0, len(lines))
	for _, raw := range lines {
		rec, err := audit.ParseLine(raw)
		if err != nil {
			h.logger.Warn("skipping malformed audit line", "error", err)
			continue
		}
		out = append(out, toLogLine(raw, rec))
	}
	h.writeJSON(w, out)
}

// HandleWebSocket upgrades the connection and streams appended log lines.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.allowed, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	// The hub itself replays its backlog to the client once registered.
	NewClient(h.hub, conn)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// readLastLines returns up to the last n non-empty lines of path.
func readLastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return lines, nil
}

// isOriginAllowed decides whether a WebSocket upgrade's Origin header is
// acceptable. Browsers always send Origin; other clients often omit it, and
// that path stays open. Loopback origins are always accepted since the
// dashboard is an operator tool expected to run on localhost by default.
// Beyond that, an explicit allow-list wins outright; absent one, the origin
// must name the same host the request itself arrived on.
func isOriginAllowed(origin string, allowed []string, reqHost string) bool {
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(originURL.Hostname())
	if host == "" {
		return false
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}
	for _, a := range allowed {
		if u, err := url.Parse(a); err == nil && strings.EqualFold(u.Hostname(), host) {
			return true
		}
	}
	if len(allowed) > 0 {
		return false
	}
	return host == strings.ToLower(hostOnly(reqHost))
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}
