// Package fallback rotates through alternate redirect targets used when a
// short link cannot be restored to its original target.
package fallback

import "sync"

type entry struct {
	url  string
	used bool
}

// Ring is a round-robin cursor over a fixed pool of fallback URLs. Every
// entry is offered exactly once per cycle before any entry repeats.
// It is safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []entry
}

// New builds a ring over urls in the given order.
func New(urls []string) *Ring {
	entries := make([]entry, 0, len(urls))
	for _, u := range urls {
		entries = append(entries, entry{url: u})
	}
	return &Ring{entries: entries}
}

// Current returns the first unused entry. When every entry has been used the
// ring resets and the first entry is returned. The boolean is false only for
// an empty pool.
func (r *Ring) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current()
}

// Advance marks the current entry as used and returns the new current entry.
func (r *Ring) Advance() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.currentIndex()
	if i < 0 {
		return "", false
	}
	r.entries[i].used = true
	return r.current()
}

// URLs returns the pool in ring order.
func (r *Ring) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.url
	}
	return out
}

func (r *Ring) current() (string, bool) {
	i := r.currentIndex()
	if i < 0 {
		return "", false
	}
	return r.entries[i].url, true
}

// currentIndex resets the ring if it is exhausted. -1 means empty.
func (r *Ring) currentIndex() int {
	if len(r.entries) == 0 {
		return -1
	}
	for i := range r.entries {
		if !r.entries[i].used {
			return i
		}
	}
	r.reset()
	return 0
}

func (r *Ring) reset() {
	for i := range r.entries {
		r.entries[i].used = false
	}
}
