package diagnostics

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 50

// maxBodySnippet bounds how much response body one entry stores.
const maxBodySnippet = 4096

// Entry is one recorded cloud exchange.
type Entry struct {
	Time     time.Time
	Endpoint string
	Method   string
	URL      string
	Status   int
	Body     string
}

// Recorder is a fixed-capacity ring of entries. The zero value is not
// usable; create one with NewRecorder.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	head    int
	count   int
}

// NewRecorder creates a recorder holding at most capacity entries. A
// capacity below one falls back to DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		entries: make([]Entry, capacity),
	}
}

// Record stores one entry, evicting the oldest when the ring is full.
// Bodies longer than the snippet bound are truncated.
func (r *Recorder) Record(e Entry) {
	if len(e.Body) > maxBodySnippet {
		e.Body = e.Body[:maxBodySnippet]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.head + r.count) % len(r.entries)
	r.entries[idx] = e
	if r.count < len(r.entries) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.entries)
	}
}

// Len returns the number of stored entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Export returns the stored entries oldest first, with the redaction pass
// applied to URL and body. The internal entries stay untouched.
func (r *Recorder) Export() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, r.count)
	for i := 0; i < r.count; i++ {
		e := r.entries[(r.head+i)%len(r.entries)]
		e.URL = Redact(e.URL)
		e.Body = Redact(e.Body)
		out = append(out, e)
	}
	return out
}

// Clear drops all stored entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.count = 0
}
