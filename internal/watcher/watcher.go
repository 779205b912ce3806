// Package watcher observes the corpus directory and emits debounced change
// batches. It exists for watch mode only; the engine itself stays
// invocation-driven and recomputes its own diff on every update.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openclaw/memoranda/internal/errors"
)

// Op is a coalesced file operation.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpDelete
)

func (op Op) String() string {
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

// Event is one coalesced change to a corpus file.
type Event struct {
	Path string
	Op   Op
	At   time.Time
}

// DefaultDebounceWindow batches editor save bursts into one update.
const DefaultDebounceWindow = 500 * time.Millisecond

// Watcher emits debounced batches of markdown changes under one directory.
type Watcher struct {
	root      string
	debouncer *debouncer
	fs        *fsnotify.Watcher
	errs      chan error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceWindow overrides the debounce window.
func WithDebounceWindow(window time.Duration) Option {
	return func(w *Watcher) {
		if window > 0 {
			w.debouncer.window = window
		}
	}
}

// New creates a watcher over the corpus root. Call Start to begin.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:      root,
		debouncer: newDebouncer(DefaultDebounceWindow),
		errs:      make(chan error, 8),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It blocks until ctx is cancelled or the underlying
// watcher fails fatally.
func (w *Watcher) Start(ctx context.Context) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.IOError(errors.ErrCodeCorpusMissing, "starting corpus watcher", err)
	}
	w.fs = fs
	defer func() {
		_ = fs.Close()
		w.debouncer.Stop()
	}()

	if err := fs.Add(w.root); err != nil {
		return errors.IOError(errors.ErrCodeCorpusMissing, "watching "+w.root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fs.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// Batches returns the channel of debounced event batches.
func (w *Watcher) Batches() <-chan []Event {
	return w.debouncer.output
}

// Errors returns non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename away from the corpus looks like a delete; if the file
		// reappears, the create will coalesce back into a modify.
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(Event{
		Path: filepath.Base(event.Name),
		Op:   op,
		At:   time.Now(),
	})
}
