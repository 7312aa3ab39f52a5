package download

import "sync"

// Snapshot is a point-in-time view of download progress.
type Snapshot struct {
	Succeeded int
	Failed    int
	Total     int
	Current   string
	Err       error
}

// Done reports whether every item has been accounted for.
func (s Snapshot) Done() bool {
	return s.Total > 0 && s.Succeeded+s.Failed >= s.Total
}

// Tracker keeps shared progress counters behind a mutex and fans
// snapshots out to observers. Observers receive on a buffered channel;
// when a slow observer's buffer is full, intermediate snapshots are
// dropped rather than blocking workers.
type Tracker struct {
	mu        sync.Mutex
	snap      Snapshot
	observers []chan Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe registers an observer and returns its channel. Must be called
// before downloads start; the channel is closed by Close.
func (t *Tracker) Observe() <-chan Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Snapshot, 64)
	t.observers = append(t.observers, ch)
	return ch
}

// Reset clears the counters for a run of total items.
func (t *Tracker) Reset(total int) {
	t.mu.Lock()
	t.snap = Snapshot{Total: total}
	snap := t.snap
	observers := t.observers
	t.mu.Unlock()
	notify(observers, snap)
}

// Success records one completed item.
func (t *Tracker) Success(label string) {
	t.mu.Lock()
	t.snap.Succeeded++
	t.snap.Current = label
	t.snap.Err = nil
	snap := t.snap
	observers := t.observers
	t.mu.Unlock()
	notify(observers, snap)
}

// Failure records one permanently failed item.
func (t *Tracker) Failure(label string, err error) {
	t.mu.Lock()
	t.snap.Failed++
	t.snap.Current = label
	t.snap.Err = err
	snap := t.snap
	observers := t.observers
	t.mu.Unlock()
	notify(observers, snap)
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Close closes all observer channels. Call once, after the run.
func (t *Tracker) Close() {
	t.mu.Lock()
	observers := t.observers
	t.observers = nil
	t.mu.Unlock()
	for _, ch := range observers {
		close(ch)
	}
}

func notify(observers []chan Snapshot, snap Snapshot) {
	for _, ch := range observers {
		select {
		case ch <- snap:
		default:
			// Observer is behind, skip this update
		}
	}
}
