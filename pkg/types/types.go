package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAction reports an action string outside the closed set.
var ErrInvalidAction = errors.New("invalid action")

// Request is the normalized descriptor handed over by the intercepting
// proxy: pretty host, full URL, HTTP method, and request path.
type Request struct {
	Host   string `json:"host"`
	URL    string `json:"url"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Action is the verdict a rule maps its pattern to.
type Action string

const (
	ActionAllow       Action = "allow"
	ActionDeny        Action = "deny"
	ActionAllowDomain Action = "allow-domain"
	ActionDenyDomain  Action = "deny-domain"
)

// ParseAction validates a loose string against the closed action set.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionAllow, ActionDeny, ActionAllowDomain, ActionDenyDomain:
		return a, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidAction, s)
}

// MatchTier identifies which precedence tier of the decision algorithm a
// rule key was matched at. Verdict semantics differ per tier.
type MatchTier int

const (
	TierURL      MatchTier = iota // exact URL key
	TierHost                      // exact host key
	TierWildcard                  // *.suffix key
)

// VerdictAt resolves an action into an allow/deny verdict for the given
// match tier. The URL tier only honors the plain allow/deny actions; the
// host and wildcard tiers honor all four, treating the suffix-less forms
// as lenient synonyms of their -domain counterparts. The second return is
// false when the action does not decide at that tier and matching must
// fall through to the next tier.
func (a Action) VerdictAt(tier MatchTier) (allowed, decided bool) {
	switch tier {
	case TierURL:
		switch a {
		case ActionAllow:
			return true, true
		case ActionDeny:
			return false, true
		}
		return false, false
	default:
		switch a {
		case ActionAllow, ActionAllowDomain:
			return true, true
		case ActionDeny, ActionDenyDomain:
			return false, true
		}
		return false, false
	}
}

// Decision is the label recorded in the access log for each checked request.
type Decision string

const (
	DecisionAllow   Decision = "ALLOW"
	DecisionDeny    Decision = "DENY"
	DecisionPending Decision = "PENDING"
)

// PendingRequest is one entry in the approval queue. The JSON shape is an
// interop contract with the management process and with hand-edited files,
// so it carries no synthetic ID.
type PendingRequest struct {
	Host      string `json:"host"`
	URL       string `json:"url"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// NewPendingRequest stamps a queue entry for the given request.
func NewPendingRequest(req Request, now time.Time) PendingRequest {
	return PendingRequest{
		Host:      req.Host,
		URL:       req.URL,
		Method:    req.Method,
		Path:      req.Path,
		Timestamp: now.Format(TimestampLayout),
	}
}

// TimestampLayout is the wall-clock format used in the pending file and the
// access log. Local time without a zone suffix, second precision.
const TimestampLayout = "2006-01-02T15:04:05"
