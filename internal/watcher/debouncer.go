package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces bursts of inbox events. Editors and copy tools emit
// several writes per file; the inbox should ingest each file once.
// Events for the same path within the window merge as:
//   - CREATE + MODIFY = CREATE
//   - CREATE + DELETE = nothing
//   - MODIFY + DELETE = DELETE
//   - DELETE + CREATE = MODIFY
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]FileEvent
	first   map[string]Operation
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

// NewDebouncer returns a Debouncer that emits a batch once no event has
// arrived for window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]FileEvent),
		first:   make(map[string]Operation),
		output:  make(chan []FileEvent, 10),
	}
}

// Add queues event and restarts the window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if _, ok := d.pending[event.Path]; ok {
		merged, keep := coalesce(d.first[event.Path], d.pending[event.Path], event)
		if keep {
			d.pending[event.Path] = merged
		} else {
			delete(d.pending, event.Path)
			delete(d.first, event.Path)
		}
	} else {
		d.pending[event.Path] = event
		d.first[event.Path] = event.Operation
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges next into the pending event whose first operation was
// first. keep is false when the two cancel out.
func coalesce(first Operation, pending, next FileEvent) (merged FileEvent, keep bool) {
	switch first {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			return pending, true
		case OpDelete:
			return FileEvent{}, false
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
			return next, true
		}
	}
	return next, true
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	d.pending = make(map[string]FileEvent)
	d.first = make(map[string]Operation)

	select {
	case d.output <- events:
	default:
		slog.Warn("inbox_batch_dropped", slog.Int("batch_size", len(events)))
	}
}

// Output delivers debounced batches sorted by path.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes Output. Safe to call twice.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
