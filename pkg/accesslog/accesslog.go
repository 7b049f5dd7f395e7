// Package accesslog is the append-only record of every decision. It is the
// single durable source of truth for statistics and recent-activity views:
// either process can reconstruct both from the file alone, which matters
// because the process that made the decisions may have since restarted.
//
// Format is line-oriented and human-diffable, fields joined by " | ":
//
//	2025-03-14T09:26:53 | ALLOW      | GET    | github.com/x
//
// Decision and method columns are padded for readability; parsing splits on
// the delimiter, never on column offsets.
package accesslog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/netsentry-io/netsentry/pkg/types"
)

const fieldSep = " | "

// Entry is one parsed log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Decision  string `json:"decision"`
	Method    string `json:"method"`
	URL       string `json:"url"`
}

// Logger appends decision records to the log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a logger for the given file path.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the backing file path.
func (l *Logger) Path() string { return l.path }

// Append writes exactly one log line: buffered write, flush, sync. The log
// is never rewritten or truncated here.
func (l *Logger) Append(now time.Time, decision types.Decision, method, hostPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open access log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s%s%-10s%s%-6s%s%s\n",
		now.Format(types.TimestampLayout), fieldSep,
		string(decision), fieldSep,
		method, fieldSep,
		hostPath)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush access log: %w", err)
	}
	return f.Sync()
}

// ParseLine splits a log line into an entry. Lines with fewer than four
// delimited fields are rejected.
func ParseLine(line string) (Entry, bool) {
	parts := strings.Split(strings.TrimRight(line, "\n"), fieldSep)
	if len(parts) < 4 {
		return Entry{}, false
	}
	return Entry{
		Timestamp: strings.TrimSpace(parts[0]),
		Decision:  strings.TrimSpace(parts[1]),
		Method:    strings.TrimSpace(parts[2]),
		URL:       strings.TrimSpace(parts[3]),
	}, true
}
