// Package rules owns the persisted mapping from match pattern to action.
// The backing file is a flat JSON object (pattern -> action) shared with
// the management process; consistency between the two processes is
// mtime-polled, never locked.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/netsentry-io/netsentry/pkg/fsio"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// Store is the in-process view of the rule file.
type Store struct {
	path string

	mu    sync.Mutex
	rules map[string]types.Action
	mtime time.Time // last observed mtime of a successfully loaded file
}

// NewStore creates a store over the given file path. The file need not
// exist yet; a missing file is an empty rule set.
func NewStore(path string) *Store {
	return &Store{
		path:  path,
		rules: make(map[string]types.Action),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the rule file, replacing the in-memory set. A missing file
// loads as empty. Malformed content is an error and leaves the previous
// set in place.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	// Observe the mtime before reading. If another write lands between
	// stat and read we may cache new data against the old token, and the
	// next poll simply reloads once more; the reverse order could cache
	// old data against the new token and miss the write entirely.
	mt, err := fsio.ModTime(s.path)
	if err != nil {
		return fmt.Errorf("stat rules file: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.rules = make(map[string]types.Action)
			s.mtime = time.Time{}
			return nil
		}
		return fmt.Errorf("read rules file: %w", err)
	}

	loaded := make(map[string]types.Action)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	s.rules = loaded
	s.mtime = mt
	return nil
}

// ReloadIfChanged re-reads the file when its mtime is newer than the last
// observed token. The token is advanced to the freshly observed mtime, not
// to "now", so a write landing between stat and read is still picked up on
// the next check. Errors are returned for the caller to swallow; the
// previous rule set always survives a failed reload.
func (s *Store) ReloadIfChanged() error {
	current, err := fsio.ModTime(s.path)
	if err != nil {
		return fmt.Errorf("stat rules file: %w", err)
	}
	if current.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !current.After(s.mtime) {
		return nil
	}
	return s.loadLocked()
}

// Snapshot returns a copy of the current rule set.
func (s *Store) Snapshot() map[string]types.Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]types.Action, len(s.rules))
	for k, v := range s.rules {
		out[k] = v
	}
	return out
}

// Get looks up the action for an exact pattern.
func (s *Store) Get(pattern string) (types.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rules[pattern]
	return a, ok
}

// Len reports the number of rules.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rules)
}

// Add inserts or overwrites a rule and persists the whole set.
func (s *Store) Add(pattern string, action types.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[pattern] = action
	return s.saveLocked()
}

// Remove deletes a rule, reporting whether it existed. The file is only
// rewritten when something was removed.
func (s *Store) Remove(pattern string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[pattern]; !ok {
		return false, nil
	}
	delete(s.rules, pattern)
	return true, s.saveLocked()
}

// Clear drops every rule and persists the empty set.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make(map[string]types.Action)
	return s.saveLocked()
}

// Replace swaps in a complete rule set (import). Every action must already
// be validated by the caller.
func (s *Store) Replace(rules map[string]types.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]types.Action, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	s.rules = copied
	return s.saveLocked()
}

// saveLocked rewrites the backing file atomically and refreshes the mtime
// token so the writer does not immediately reload its own write.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := fsio.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("save rules: %w", err)
	}
	if mt, err := fsio.ModTime(s.path); err == nil {
		s.mtime = mt
	}
	return nil
}
