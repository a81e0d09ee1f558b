// Package history keeps the most recent derivations, newest first.
package history

import (
	"sync"
	"time"

	"github.com/san-kum/lavarand/internal/keygen"
)

// DefaultCapacity is the number of records the log retains.
const DefaultCapacity = 10

// Record is one completed derivation. SeedPreview is the head of the digest,
// never the whole of it.
type Record struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	SeedPreview string      `json:"seed_preview"`
	Key         string      `json:"key"`
	Kind        keygen.Kind `json:"kind"`
}

// Log is a bounded, newest-first list of records. Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	entries  []Record
	capacity int
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, entries: make([]Record, 0, capacity)}
}

// Push inserts r at the front and drops whatever falls past capacity, as a
// single step.
func (l *Log) Push(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if n < l.capacity {
		l.entries = append(l.entries, Record{})
		n++
	}
	copy(l.entries[1:n], l.entries[:n-1])
	l.entries[0] = r
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Latest() (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Record{}, false
	}
	return l.entries[0], true
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Capacity() int { return l.capacity }
