// Package service owns the management-side view of the three stores: a
// read-through cache refreshed on a fixed interval, plus the mutating
// operations the API handlers call. Request handlers serve from the cache
// and never touch disk directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/netsentry-io/netsentry/pkg/accesslog"
	"github.com/netsentry-io/netsentry/pkg/pending"
	"github.com/netsentry-io/netsentry/pkg/rules"
	"github.com/netsentry-io/netsentry/pkg/types"
)

var ErrRuleNotFound = errors.New("rule not found")

// Approval actions accepted by Approve. Domain actions write a host rule
// and clear every pending entry for the host; URL actions write a URL rule
// and clear only the matching entry.
const (
	ApproveAllowDomain = "allow-domain"
	ApproveDenyDomain  = "deny-domain"
	ApproveAllowURL    = "allow-url"
	ApproveDenyURL     = "deny-url"
)

// recentLimit is how many log entries the cache keeps for the activity view.
const recentLimit = 100

// Snapshot is one consistent view of the cached state.
type Snapshot struct {
	Rules      map[string]types.Action
	Stats      map[string]int
	Recent     []accesslog.Entry
	Pending    []types.PendingRequest
	LastUpdate string
}

// Monitor is the management process's cache and store coordinator.
type Monitor struct {
	rules   *rules.Store
	pending *pending.Queue
	scanner *accesslog.Scanner
	logPath string
	log     *slog.Logger

	mu    sync.Mutex
	cache Snapshot
}

// NewMonitor constructs the service over the shared stores.
func NewMonitor(ruleStore *rules.Store, queue *pending.Queue, logPath string, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		rules:   ruleStore,
		pending: queue,
		scanner: accesslog.NewScanner(logPath),
		logPath: logPath,
		log:     log,
		cache: Snapshot{
			Rules: map[string]types.Action{},
			Stats: map[string]int{},
		},
	}
}

// Run refreshes the cache on the given interval until ctx is done. An
// initial refresh happens immediately so the first API calls are served
// from warm state.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh()
		}
	}
}

// Refresh re-reads all three stores and swaps the cache. Disk I/O happens
// outside the cache lock; the stats baseline is passed into the scanner so
// it never needs to reacquire the lock itself.
func (m *Monitor) Refresh() {
	m.mu.Lock()
	baseline := m.cache.Stats
	m.mu.Unlock()

	if err := m.rules.ReloadIfChanged(); err != nil {
		m.log.Debug("rules refresh skipped", "error", err)
	}
	if err := m.pending.ReloadIfChanged(); err != nil {
		m.log.Debug("pending refresh skipped", "error", err)
	}

	stats, err := m.scanner.Recount(baseline)
	if err != nil {
		m.log.Warn("stats recount failed", "error", err)
		stats = baseline
	}

	ruleSet := m.rules.Snapshot()
	queued := m.pending.List()
	recent := accesslog.Recent(m.logPath, recentLimit)

	m.mu.Lock()
	m.cache = Snapshot{
		Rules:      ruleSet,
		Stats:      stats,
		Recent:     recent,
		Pending:    queued,
		LastUpdate: time.Now().Format(time.RFC3339Nano),
	}
	m.mu.Unlock()
}

// State returns the current cache snapshot. Maps and slices are shared
// read-only copies owned by the cache swap; callers must not mutate them.
func (m *Monitor) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache
}

// AddRule validates and persists one rule, then refreshes the cached set.
func (m *Monitor) AddRule(target, action string) (types.Action, error) {
	parsed, err := types.ParseAction(action)
	if err != nil {
		return "", err
	}
	if err := m.rules.Add(target, parsed); err != nil {
		return "", err
	}
	m.updateRulesCache()
	return parsed, nil
}

// DeleteRule removes one rule; ErrRuleNotFound when absent.
func (m *Monitor) DeleteRule(target string) error {
	removed, err := m.rules.Remove(target)
	if err != nil {
		return err
	}
	if !removed {
		return ErrRuleNotFound
	}
	m.updateRulesCache()
	return nil
}

// ClearRules drops the whole rule set.
func (m *Monitor) ClearRules() error {
	if err := m.rules.Clear(); err != nil {
		return err
	}
	m.updateRulesCache()
	return nil
}

// ImportRules validates every action, then replaces the whole set.
func (m *Monitor) ImportRules(raw map[string]string) (int, error) {
	imported := make(map[string]types.Action, len(raw))
	for target, action := range raw {
		parsed, err := types.ParseAction(action)
		if err != nil {
			return 0, fmt.Errorf("%w for %s: %s", types.ErrInvalidAction, target, action)
		}
		imported[target] = parsed
	}
	if err := m.rules.Replace(imported); err != nil {
		return 0, err
	}
	m.updateRulesCache()
	return len(imported), nil
}

// ExportRules returns the persisted rule set in its file shape.
func (m *Monitor) ExportRules() map[string]types.Action {
	return m.rules.Snapshot()
}

// Approve disposes of a pending request: write the corresponding rule and
// clear matching pending entries. Domain actions clear every entry for the
// host; URL actions clear only the (host, url) entry. Returns the rule
// target and action that were written.
func (m *Monitor) Approve(host, url, action string) (string, types.Action, error) {
	var target string
	var ruleAction types.Action
	var match func(types.PendingRequest) bool

	switch action {
	case ApproveAllowDomain, ApproveDenyDomain:
		target = host
		ruleAction = types.Action(action)
		match = func(p types.PendingRequest) bool { return p.Host == host }
	case ApproveAllowURL:
		target = url
		ruleAction = types.ActionAllow
		match = func(p types.PendingRequest) bool { return p.Host == host && p.URL == url }
	case ApproveDenyURL:
		target = url
		ruleAction = types.ActionDeny
		match = func(p types.PendingRequest) bool { return p.Host == host && p.URL == url }
	default:
		return "", "", fmt.Errorf("%w %q", types.ErrInvalidAction, action)
	}

	// Pick up queue entries added since the last poll so a domain approval
	// sweeps all of them.
	if err := m.pending.ReloadIfChanged(); err != nil {
		m.log.Debug("pending refresh skipped", "error", err)
	}

	if err := m.rules.Add(target, ruleAction); err != nil {
		return "", "", err
	}
	if _, err := m.pending.RemoveWhere(match); err != nil {
		return "", "", err
	}

	m.mu.Lock()
	m.cache.Rules = m.rules.Snapshot()
	m.cache.Pending = m.pending.List()
	m.cache.LastUpdate = time.Now().Format(time.RFC3339Nano)
	m.mu.Unlock()

	return target, ruleAction, nil
}

func (m *Monitor) updateRulesCache() {
	snap := m.rules.Snapshot()
	m.mu.Lock()
	m.cache.Rules = snap
	m.cache.LastUpdate = time.Now().Format(time.RFC3339Nano)
	m.mu.Unlock()
}
