package accesslog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/netsentry-io/netsentry/pkg/fsio"
)

// Scanner recounts decision statistics incrementally. It remembers the byte
// offset of the last read and the file's identity; on rotation (identity
// changed or the file shrank below the offset) the baseline is discarded
// and the scan restarts from zero. This keeps stats cheap to recompute on
// every poll cycle even as the log grows without bound.
type Scanner struct {
	path string

	mu       sync.Mutex
	offset   int64
	identity fsio.Identity
	seen     bool // an identity has been recorded
}

// NewScanner creates a scanner for the given log path.
func NewScanner(path string) *Scanner {
	return &Scanner{path: path}
}

// Recount folds newly appended lines into baseline and returns the updated
// counts. The baseline is taken as an argument, not read from shared state,
// so a caller already holding its cache lock never needs this package to
// reacquire it. The returned map is always a fresh copy; baseline is not
// mutated. Counts are keyed by lowercased decision plus "total".
func (s *Scanner) Recount(baseline map[string]int) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]int, len(baseline)+4)
	for k, v := range baseline {
		stats[k] = v
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("open access log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return stats, fmt.Errorf("stat access log: %w", err)
	}
	identity := fsio.FileIdentity(info)

	rotated := info.Size() < s.offset
	if s.seen && identity.OK && identity != s.identity {
		rotated = true
	}
	if rotated {
		// New file behind the same path: previous counts describe bytes
		// that no longer exist.
		stats = make(map[string]int, 4)
		s.offset = 0
	}

	if _, err := f.Seek(s.offset, 0); err != nil {
		return stats, fmt.Errorf("seek access log: %w", err)
	}

	r := bufio.NewReader(f)
	var consumed int64
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			// A trailing fragment without a newline is a line mid-append;
			// leave it for the next pass.
			break
		}
		consumed += int64(len(line))
		if entry, ok := ParseLine(line); ok {
			stats["total"]++
			stats[strings.ToLower(entry.Decision)]++
		}
	}

	s.offset += consumed
	s.identity = identity
	s.seen = identity.OK
	return stats, nil
}

// tailReadLimit bounds how much of the file the recent-activity view reads.
const tailReadLimit = 100 * 1024

// Recent returns up to limit parsed entries from the end of the log, newest
// first. At most the last 100KiB are read. I/O faults degrade to an empty
// view, never an error on the serving path.
func Recent(path string, limit int) []Entry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return nil
	}

	readSize := info.Size()
	if readSize > tailReadLimit {
		readSize = tailReadLimit
	}
	if _, err := f.Seek(info.Size()-readSize, 0); err != nil {
		return nil
	}

	buf := make([]byte, readSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil
	}

	lines := strings.Split(string(buf), "\n")
	entries := make([]Entry, 0, limit)
	for i := len(lines) - 1; i >= 0 && len(entries) < limit; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if entry, ok := ParseLine(lines[i]); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}
