package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces rapid events per path within a window before emitting
// them as one batch. Coalescing rules:
//
//	CREATE then MODIFY -> CREATE (still a new file)
//	CREATE then DELETE -> dropped (never really existed)
//	MODIFY then DELETE -> DELETE
//	DELETE then CREATE -> MODIFY (file was replaced)
type debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]Event
	firstOp map[string]Op
	timer   *time.Timer
	stopped bool

	output chan []Event
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]Event),
		firstOp: make(map[string]Op),
		output:  make(chan []Event, 4),
	}
}

// Add records an event and (re)arms the flush timer.
func (d *debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	path := event.Path
	if first, seen := d.firstOp[path]; seen {
		switch {
		case first == OpCreate && event.Op == OpDelete:
			delete(d.pending, path)
			delete(d.firstOp, path)
		case first == OpCreate:
			// Still a create, whatever happened in between.
			e := d.pending[path]
			e.At = event.At
			d.pending[path] = e
		case first == OpDelete && event.Op == OpCreate:
			event.Op = OpModify
			d.pending[path] = event
		default:
			d.pending[path] = event
		}
	} else {
		d.pending[path] = event
		d.firstOp[path] = event.Op
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for _, e := range d.pending {
		batch = append(batch, e)
	}
	d.pending = make(map[string]Event)
	d.firstOp = make(map[string]Op)

	select {
	case d.output <- batch:
	default:
		// A consumer that stopped draining loses the batch; the next
		// invocation-driven update recovers via the hash diff anyway.
	}
}

// Stop closes the output channel. Safe to call once the watcher loop exits.
func (d *debouncer) Stop() {
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
