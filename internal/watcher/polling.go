package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// poller detects inbox changes by listing the directory on an interval.
// It covers network mounts and containers where fsnotify reports nothing.
type poller struct {
	dir      string
	interval time.Duration
	state    map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

func newPoller(dir string, interval time.Duration) *poller {
	return &poller{dir: dir, interval: interval, state: make(map[string]fileSnapshot)}
}

// run records a baseline, then emits the difference on every tick.
func (p *poller) run(ctx context.Context, emit func(FileEvent)) error {
	p.state = p.scan()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, ev := range p.detect() {
				emit(ev)
			}
		}
	}
}

func (p *poller) scan() map[string]fileSnapshot {
	current := make(map[string]fileSnapshot)
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		slog.Warn("inbox_scan_failed", slog.String("dir", p.dir), slog.String("error", err.Error()))
		return current
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		current[filepath.Join(p.dir, entry.Name())] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return current
}

// detect compares a fresh scan with the last one and keeps the fresh one.
func (p *poller) detect() []FileEvent {
	current := p.scan()
	now := time.Now()

	var events []FileEvent
	for path, snap := range current {
		old, ok := p.state[path]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case !snap.modTime.Equal(old.modTime) || snap.size != old.size:
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range p.state {
		if _, ok := current[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
	p.state = current
	return events
}
