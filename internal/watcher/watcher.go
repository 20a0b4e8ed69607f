// Package watcher ingests documents dropped into an inbox directory.
//
// fsnotify reports changes when the platform supports it; otherwise the
// directory is polled. Events are debounced, then supported files are
// ingested and removed files are deleted from the store.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/briany/genai-rag-chatbot/internal/chunk"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
)

// Operation is the kind of change seen for a file.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change to a file in the inbox.
type FileEvent struct {
	// Path is absolute.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures an Inbox.
type Options struct {
	// Debounce is the quiet period before a batch is processed.
	Debounce time.Duration

	// PollInterval is used when fsnotify is unavailable.
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns a 500ms debounce and a 2s poll interval.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		PollInterval: 2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}

// Ingester is the part of retrieval.Service the inbox drives.
type Ingester interface {
	Ingest(ctx context.Context, path string) (retrieval.IngestResult, error)
	Delete(ctx context.Context, documentID string) (bool, error)
}

// Inbox watches one directory, non-recursively.
type Inbox struct {
	dir      string
	opts     Options
	ingester Ingester

	mu   sync.Mutex
	docs map[string]string // path -> document id

	processed chan FileEvent
}

// NewInbox returns an Inbox over dir. The directory is created if needed.
func NewInbox(dir string, ingester Ingester, opts Options) (*Inbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve inbox path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox directory: %w", err)
	}
	return &Inbox{
		dir:       abs,
		opts:      opts.withDefaults(),
		ingester:  ingester,
		docs:      make(map[string]string),
		processed: make(chan FileEvent, 100),
	}, nil
}

// Dir returns the absolute inbox path.
func (in *Inbox) Dir() string { return in.dir }

// Processed reports each event after it has been applied to the store.
// Sends never block; unread events are dropped.
func (in *Inbox) Processed() <-chan FileEvent { return in.processed }

// Run watches until ctx is cancelled. Files already in the directory are
// left alone; only changes after Run starts are ingested.
func (in *Inbox) Run(ctx context.Context) error {
	debouncer := NewDebouncer(in.opts.Debounce)
	defer debouncer.Stop()

	go func() {
		for batch := range debouncer.Output() {
			for _, ev := range batch {
				in.apply(ctx, ev)
			}
		}
	}()

	slog.Info("inbox_started", slog.String("dir", in.dir))
	if !in.opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fsw.Add(in.dir); err == nil {
				defer func() { _ = fsw.Close() }()
				return in.runFsnotify(ctx, fsw, debouncer)
			}
			_ = fsw.Close()
		}
		slog.Warn("inbox_fsnotify_unavailable", slog.String("error", err.Error()))
	}
	return newPoller(in.dir, in.opts.PollInterval).run(ctx, func(ev FileEvent) {
		if in.accepts(ev.Path) {
			debouncer.Add(ev)
		}
	})
}

func (in *Inbox) runFsnotify(ctx context.Context, fsw *fsnotify.Watcher, debouncer *Debouncer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !in.accepts(event.Name) {
				continue
			}
			var op Operation
			switch {
			case event.Has(fsnotify.Create):
				op = OpCreate
			case event.Has(fsnotify.Write):
				op = OpModify
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				op = OpDelete
			default:
				continue
			}
			debouncer.Add(FileEvent{Path: event.Name, Operation: op, Timestamp: time.Now()})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("inbox_watch_error", slog.String("error", err.Error()))
		}
	}
}

// accepts skips hidden files, editor temp files and unsupported types.
func (in *Inbox) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") || strings.HasSuffix(base, "~") {
		return false
	}
	return chunk.IsSupported(base)
}

// apply updates the store for ev. A modified file replaces the document
// ingested from it earlier.
func (in *Inbox) apply(ctx context.Context, ev FileEvent) {
	if ctx.Err() != nil {
		return
	}
	logger := slog.With(slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))

	in.mu.Lock()
	prev, known := in.docs[ev.Path]
	in.mu.Unlock()

	if known {
		if _, err := in.ingester.Delete(ctx, prev); err != nil {
			logger.Warn("inbox_delete_failed", slog.String("error", err.Error()))
			return
		}
		in.mu.Lock()
		delete(in.docs, ev.Path)
		in.mu.Unlock()
	}

	if ev.Operation != OpDelete {
		res, err := in.ingester.Ingest(ctx, ev.Path)
		if err != nil {
			logger.Warn("inbox_ingest_failed", slog.String("error", err.Error()))
			return
		}
		in.mu.Lock()
		in.docs[ev.Path] = res.DocumentID
		in.mu.Unlock()
		logger.Info("inbox_ingested", slog.String("document_id", res.DocumentID), slog.Int("chunks", res.ChunksCount))
	}

	select {
	case in.processed <- ev:
	default:
	}
}
