package memory

import "sync"

// watcherSet is a registry of change callbacks shared by the stores. Watchers
// run synchronously on the mutating goroutine, mirroring a snapshot listener
// firing per change batch.
type watcherSet struct {
	mu      sync.Mutex
	nextID  int
	entries map[int]func()
}

func newWatcherSet() *watcherSet {
	return &watcherSet{entries: make(map[int]func())}
}

func (w *watcherSet) add(fn func()) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.entries[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.entries, id)
		w.mu.Unlock()
	}
}

func (w *watcherSet) notify() {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.entries))
	for _, fn := range w.entries {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
