package dashboard

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// follower watches the audit log for appended lines by polling os.Stat's
// reported size, the same cooperative-polling approach the engine itself
// uses for the broker — nothing else in the corpus imports fsnotify, so
// this module doesn't either.
type follower struct {
	path     string
	interval time.Duration
	size     int64
	logger   *slog.Logger
	onLines  func(lines []string)
}

func newFollower(path string, interval time.Duration, logger *slog.Logger, onLines func(lines []string)) *follower {
	f := &follower{path: path, interval: interval, logger: logger.With("component", "log-tail"), onLines: onLines}
	if info, err := os.Stat(path); err == nil {
		f.size = info.Size()
	}
	return f
}

// Run polls until ctx is cancelled. It streams from the file size recorded
// when the follower was created, so only lines appended after that point
// are streamed — the hub's seeded replay buffer covers the initial snapshot.
func (f *follower) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.poll()
		}
	}
}

func (f *follower) poll() {
	info, err := os.Stat(f.path)
	if err != nil {
		return
	}
	if info.Size() <= f.size {
		if info.Size() < f.size {
			f.size = 0 // file truncated/rotated; re-read from start next poll
		}
		return
	}

	file, err := os.Open(f.path)
	if err != nil {
		f.logger.Warn("open audit log for tail", "error", err)
		return
	}
	defer file.Close()

	if _, err := file.Seek(f.size, 0); err != nil {
		f.logger.Warn("seek audit log for tail", "error", err)
		return
	}

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	f.size = info.Size()

	if len(lines) > 0 && f.onLines != nil {
		f.onLines(lines)
	}
}
