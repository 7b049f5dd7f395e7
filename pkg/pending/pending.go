// Package pending manages the approval queue shared between the decision
// daemon (writer on no-match) and the management process (reader, and
// writer on approval). The backing file is a JSON array, newest-last.
package pending

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/netsentry-io/netsentry/pkg/fsio"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// DefaultCapacity bounds the queue. Oldest entries are dropped first; this
// is a capacity control, not a security control.
const DefaultCapacity = 100

// Queue is the in-process view of the pending file.
type Queue struct {
	path string
	cap  int

	mu      sync.Mutex
	entries []types.PendingRequest
	mtime   time.Time
}

// NewQueue creates a queue over the given file path. capacity <= 0 selects
// DefaultCapacity.
func NewQueue(path string, capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{path: path, cap: capacity}
}

// Path returns the backing file path.
func (q *Queue) Path() string { return q.path }

// Load reads the pending file, replacing the in-memory list. Missing file
// loads as empty; malformed content errors and keeps the previous list.
func (q *Queue) Load() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

func (q *Queue) loadLocked() error {
	// Stat before read: caching fresh data against an older token only
	// costs one redundant reload, while the reverse order could miss a
	// write that lands between the two syscalls.
	mt, err := fsio.ModTime(q.path)
	if err != nil {
		return fmt.Errorf("stat pending file: %w", err)
	}

	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			q.entries = nil
			q.mtime = time.Time{}
			return nil
		}
		return fmt.Errorf("read pending file: %w", err)
	}

	var loaded []types.PendingRequest
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse pending file: %w", err)
	}

	q.entries = loaded
	q.mtime = mt
	return nil
}

// ReloadIfChanged re-reads the file when its mtime advanced past the cached
// token. Same protocol as the rule store; errors are the caller's to
// swallow.
func (q *Queue) ReloadIfChanged() error {
	current, err := fsio.ModTime(q.path)
	if err != nil {
		return fmt.Errorf("stat pending file: %w", err)
	}
	if current.IsZero() {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !current.After(q.mtime) {
		return nil
	}
	return q.loadLocked()
}

// Enqueue appends a request unless an entry with the same (host, url) pair
// already exists. The queue is reloaded first so an approval performed by
// the other process since the last decision is honored. On change the list
// is truncated to the most recent entries and persisted atomically.
func (q *Queue) Enqueue(req types.Request, now time.Time) error {
	// Best-effort pickup of the other process's writes; a transient parse
	// failure must not block the decision path.
	_ = q.ReloadIfChanged()

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.Host == req.Host && e.URL == req.URL {
			return nil
		}
	}

	q.entries = append(q.entries, types.NewPendingRequest(req, now))
	if len(q.entries) > q.cap {
		q.entries = q.entries[len(q.entries)-q.cap:]
	}
	return q.saveLocked()
}

// List returns a copy of the queue, oldest first.
func (q *Queue) List() []types.PendingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]types.PendingRequest, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len reports the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// RemoveWhere drops every entry the predicate matches and persists when
// anything was removed. Returns the number of removed entries.
func (q *Queue) RemoveWhere(pred func(types.PendingRequest) bool) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0:0]
	for _, e := range q.entries {
		if !pred(e) {
			kept = append(kept, e)
		}
	}
	removed := len(q.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	q.entries = kept
	return removed, q.saveLocked()
}

// Replace swaps in a complete list (management-side write-through).
func (q *Queue) Replace(entries []types.PendingRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	copied := make([]types.PendingRequest, len(entries))
	copy(copied, entries)
	q.entries = copied
	return q.saveLocked()
}

func (q *Queue) saveLocked() error {
	// Marshal a non-nil slice so an empty queue persists as [].
	entries := q.entries
	if entries == nil {
		entries = []types.PendingRequest{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}
	if err := fsio.WriteFileAtomic(q.path, data, 0644); err != nil {
		return fmt.Errorf("save pending: %w", err)
	}
	if mt, err := fsio.ModTime(q.path); err == nil {
		q.mtime = mt
	}
	return nil
}
