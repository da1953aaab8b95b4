// Package logging builds the slog.Logger shared by the copier, dashboard,
// and publisher commands from the YAML-configured level and format.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/mt5copier/tradecopier/internal/config"
)

// New builds a logger at cfg's level, in cfg's format, that writes warning
// and error records to stderr and everything else to stdout — so an
// operator tailing stdout for normal activity still sees failures on the
// terminal even if stdout is redirected to a file.
func New(cfg config.LoggingConfig) *slog.Logger {
	level := parseLevel(cfg.Level)
	return slog.New(&splitHandler{
		stdout: newHandler(cfg.Format, os.Stdout, level),
		stderr: newHandler(cfg.Format, os.Stderr, level),
	})
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// splitHandler routes a record to the stderr handler at Warn level and
// above, and to the stdout handler otherwise. Both sides share the same
// level filter, so Enabled matches whichever handler would actually accept
// the record.
type splitHandler struct {
	stdout, stderr slog.Handler
}

func (h *splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelWarn {
		return h.stderr.Enabled(ctx, level)
	}
	return h.stdout.Enabled(ctx, level)
}

func (h *splitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderr.Handle(ctx, r)
	}
	return h.stdout.Handle(ctx, r)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{
		stdout: h.stdout.WithAttrs(attrs),
		stderr: h.stderr.WithAttrs(attrs),
	}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{
		stdout: h.stdout.WithGroup(name),
		stderr: h.stderr.WithGroup(name),
	}
}
