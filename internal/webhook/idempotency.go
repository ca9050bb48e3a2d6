package webhook

import (
	"sync"
	"time"
)

// recorder remembers delivered event keys for a sliding window so carrier
// retries do not produce duplicate tracking updates.
type recorder struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func newRecorder(window time.Duration) *recorder {
	return &recorder{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// duplicate reports whether the key was delivered inside the window. It
// never refreshes the timestamp; only record does.
func (r *recorder) duplicate(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.seen[key]
	return ok && at.After(r.now().Add(-r.window))
}

// record marks the key delivered. The pipeline calls it only after a
// successful sink handoff.
func (r *recorder) record(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.seen[key] = now

	// Cheap incremental purge: expired keys go away as new events arrive.
	if len(r.seen)%64 == 0 {
		cutoff := now.Add(-r.window)
		for k, at := range r.seen {
			if !at.After(cutoff) {
				delete(r.seen, k)
			}
		}
	}
}
