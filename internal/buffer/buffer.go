package buffer

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/logcaster/logcaster/internal/model"
)

// DefaultCapacity is the entry window kept when no capacity is configured.
const DefaultCapacity = 10000

// Callback keys understood by Push. Subscribers register under a stream key
// and are invoked synchronously on the pushing goroutine.
const (
	StreamAll   = "#logs-all"
	StreamError = "#logs-error"
)

// Callback receives an entry immediately after it is inserted. Callbacks run
// while the buffer lock is held: they must be fast, must not block, and must
// not call back into the buffer.
type Callback func(entry model.LogEntry)

// Matcher decides whether an entry satisfies a search predicate.
type Matcher interface {
	Matches(message string, timestamp time.Time) bool
}

// RingBuffer is a bounded FIFO of log entries with drop-oldest overwrite.
// All operations are safe for concurrent use.
type RingBuffer struct {
	mu        sync.Mutex
	entries   []model.LogEntry
	head      int // index of the oldest entry
	count     int
	capacity  int
	callbacks map[string][]Callback

	total   atomic.Uint64
	dropped atomic.Uint64
}

// New creates a ring buffer holding at most capacity entries.
// Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingBuffer{
		entries:   make([]model.LogEntry, capacity),
		capacity:  capacity,
		callbacks: make(map[string][]Callback),
	}
}

// Push appends an entry stamped with the current instant. When the buffer is
// full the oldest entry is overwritten and the dropped counter incremented.
// Registered callbacks for the entry's streams run before Push returns.
func (b *RingBuffer) Push(message, level, source string) {
	entry := model.NewEntry(message, level, source)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == b.capacity {
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.dropped.Add(1)
	}
	b.entries[(b.head+b.count)%b.capacity] = entry
	b.count++
	b.total.Add(1)

	for _, cb := range b.callbacks[StreamAll] {
		cb(entry)
	}
	if entry.Level == "ERROR" {
		for _, cb := range b.callbacks[StreamError] {
			cb(entry)
		}
	}
}

// Search scans oldest-first and returns the display form of every entry
// whose message contains keyword as a substring. An empty keyword matches
// every entry.
func (b *RingBuffer) Search(keyword string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var results []string
	for i := 0; i < b.count; i++ {
		entry := b.entries[(b.head+i)%b.capacity]
		if strings.Contains(entry.Message, keyword) {
			results = append(results, entry.Display())
		}
	}
	return results
}

// SearchEnhanced scans oldest-first and returns the display form of every
// entry accepted by the matcher.
func (b *RingBuffer) SearchEnhanced(m Matcher) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var results []string
	for i := 0; i < b.count; i++ {
		entry := b.entries[(b.head+i)%b.capacity]
		if m.Matches(entry.Message, entry.Timestamp) {
			results = append(results, entry.Display())
		}
	}
	return results
}

// RegisterCallback appends cb under the given stream key. Registration is
// append-only; deduplication is the caller's responsibility.
func (b *RingBuffer) RegisterCallback(key string, cb Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks[key] = append(b.callbacks[key], cb)
}

// Stats returns the total number of successful pushes and the number of
// entries dropped to make room.
func (b *RingBuffer) Stats() (total, dropped uint64) {
	return b.total.Load(), b.dropped.Load()
}

// Size returns the number of entries currently held.
func (b *RingBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Capacity returns the configured window size.
func (b *RingBuffer) Capacity() int {
	return b.capacity
}
