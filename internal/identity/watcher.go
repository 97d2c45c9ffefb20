package identity

import "sync"

// Watcher tracks the current identity for one browser session and notifies
// subscribers whenever it changes (sign-in, sign-out, profile update). A nil
// session on the channel means signed out.
type Watcher struct {
	mu          sync.Mutex
	current     *Session
	nextID      int
	subscribers map[int]chan *Session
	closed      bool
}

// NewWatcher creates a watcher with no current identity.
func NewWatcher() *Watcher {
	return &Watcher{subscribers: make(map[int]chan *Session)}
}

// Current returns the current identity, or nil when signed out.
func (w *Watcher) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Set replaces the current identity and notifies all subscribers. Slow
// subscribers shed the oldest queued state rather than block the caller, so
// the newest state is always enqueued; intermediate states may be dropped
// but the terminal one (a sign-out included) is never lost.
func (w *Watcher) Set(s *Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.current = s
	for _, ch := range w.subscribers {
		select {
		case ch <- s:
		default:
			// Set is the only writer and holds the mutex, so the slot
			// freed here cannot be taken by anyone else.
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Subscribe registers for identity change notifications. The returned cancel
// func unregisters and closes the channel; it is safe to call more than once.
func (w *Watcher) Subscribe() (<-chan *Session, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan *Session, 8)
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	w.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if _, ok := w.subscribers[id]; ok {
				delete(w.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close drops all subscribers and closes their channels. Further Set calls
// are ignored.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.current = nil
	for id, ch := range w.subscribers {
		delete(w.subscribers, id)
		close(ch)
	}
}
