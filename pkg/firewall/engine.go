// Package firewall implements the default-deny decision engine that sits on
// the interceptor's request path. Precedence is fixed: exact URL, exact
// host, wildcard domains from most to least specific, then the fail-closed
// pending path. A request with no matching rule is never allowed.
package firewall

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/netsentry-io/netsentry/pkg/accesslog"
	"github.com/netsentry-io/netsentry/pkg/pending"
	"github.com/netsentry-io/netsentry/pkg/rules"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// maxRecent bounds the in-memory recent-requests ring.
const maxRecent = 50

// Engine evaluates requests against the rule store.
type Engine struct {
	rules   *rules.Store
	pending *pending.Queue
	log     *accesslog.Logger
	slog    *slog.Logger

	mu     sync.Mutex
	stats  map[string]int
	recent []accesslog.Entry

	now func() time.Time
}

// New constructs an engine over the three stores.
func New(ruleStore *rules.Store, queue *pending.Queue, logger *accesslog.Logger, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		rules:   ruleStore,
		pending: queue,
		log:     logger,
		slog:    log,
		stats:   make(map[string]int),
		now:     time.Now,
	}
}

// Check decides whether the request is allowed. Every call records exactly
// one access-log line; unmatched requests are queued for approval and
// denied. The context is accepted for interface symmetry with the serving
// path; the decision itself is synchronous and fast.
func (e *Engine) Check(ctx context.Context, req types.Request) bool {
	// Pick up rule edits made by the management process. A reload hiccup
	// (file mid-write, malformed content) keeps the previous rules; a live
	// decision is never failed over it.
	if err := e.rules.ReloadIfChanged(); err != nil {
		e.slog.Debug("rules reload skipped", "error", err)
	}

	// Tier 1: exact URL.
	if action, ok := e.rules.Get(req.URL); ok {
		if allowed, decided := action.VerdictAt(types.TierURL); decided {
			return e.record(req, allowed)
		}
	}

	// Tier 2: exact host.
	if action, ok := e.rules.Get(req.Host); ok {
		if allowed, decided := action.VerdictAt(types.TierHost); decided {
			return e.record(req, allowed)
		}
	}

	// Tier 3: wildcard domains, most specific first. Host a.b.c tests
	// *.b.c then *.c; the host itself never matches its own wildcard.
	for _, pattern := range WildcardPatterns(req.Host) {
		if action, ok := e.rules.Get(pattern); ok {
			if allowed, decided := action.VerdictAt(types.TierWildcard); decided {
				return e.record(req, allowed)
			}
		}
	}

	// No rule: queue for approval and deny. This path must never allow.
	if err := e.pending.Enqueue(req, e.now()); err != nil {
		e.slog.Warn("failed to queue pending request", "host", req.Host, "error", err)
	}
	e.logDecision(req, types.DecisionPending)
	return false
}

// WildcardPatterns generates the wildcard candidates for a host, most
// specific first. "tracker.ads.com" yields "*.ads.com", "*.com"; a bare
// label yields nothing.
func WildcardPatterns(host string) []string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return nil
	}
	patterns := make([]string, 0, len(labels)-1)
	for i := 1; i < len(labels); i++ {
		patterns = append(patterns, "*."+strings.Join(labels[i:], "."))
	}
	return patterns
}

func (e *Engine) record(req types.Request, allowed bool) bool {
	if allowed {
		e.logDecision(req, types.DecisionAllow)
	} else {
		e.logDecision(req, types.DecisionDeny)
	}
	return allowed
}

func (e *Engine) logDecision(req types.Request, decision types.Decision) {
	now := e.now()
	if err := e.log.Append(now, decision, req.Method, req.Host+req.Path); err != nil {
		e.slog.Warn("failed to append access log", "error", err)
	}

	e.slog.Info("decision",
		"trace", types.GenerateTraceID(),
		"decision", string(decision),
		"method", req.Method,
		"host", req.Host,
		"path", req.Path,
	)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats[strings.ToLower(string(decision))]++
	e.stats["total"]++
	e.recent = append(e.recent, accesslog.Entry{
		Timestamp: now.Format(types.TimestampLayout),
		Decision:  string(decision),
		Method:    req.Method,
		URL:       req.Host + req.Path,
	})
	if len(e.recent) > maxRecent {
		e.recent = e.recent[len(e.recent)-maxRecent:]
	}
}

// Len reports the number of currently loaded rules.
func (e *Engine) Len() int {
	return e.rules.Len()
}

// Stats returns a copy of the in-process decision counters. A freshly
// started process has empty counters; durable numbers come from the access
// log via accesslog.Scanner.
func (e *Engine) Stats() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]int, len(e.stats))
	for k, v := range e.stats {
		out[k] = v
	}
	return out
}

// Recent returns up to limit most recent in-process decisions, newest last.
func (e *Engine) Recent(limit int) []accesslog.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 || limit > len(e.recent) {
		limit = len(e.recent)
	}
	out := make([]accesslog.Entry, limit)
	copy(out, e.recent[len(e.recent)-limit:])
	return out
}
