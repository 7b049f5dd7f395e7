package dto

import (
	"github.com/netsentry-io/netsentry/pkg/accesslog"
	"github.com/netsentry-io/netsentry/pkg/types"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status     string `json:"status"`
	RulesCount int    `json:"rules_count"`
	Timestamp  string `json:"timestamp"`
}

// RulesResponse lists the rule set.
type RulesResponse struct {
	Rules      map[string]types.Action `json:"rules"`
	Count      int                     `json:"count"`
	LastUpdate string                  `json:"last_update"`
}

// RuleWriteResponse confirms a rule mutation.
type RuleWriteResponse struct {
	Success bool   `json:"success"`
	Target  string `json:"target"`
	Action  string `json:"action,omitempty"`
}

// ClearResponse confirms a destructive bulk operation.
type ClearResponse struct {
	Success bool `json:"success"`
}

// ImportResponse confirms a rule import.
type ImportResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// PendingResponse lists the approval queue.
type PendingResponse struct {
	Pending    []types.PendingRequest `json:"pending"`
	Count      int                    `json:"count"`
	LastUpdate string                 `json:"last_update"`
}

// StatsResponse carries decision counters.
type StatsResponse struct {
	Stats      map[string]int `json:"stats"`
	LastUpdate string         `json:"last_update"`
}

// RequestsResponse lists recent activity.
type RequestsResponse struct {
	Requests   []accesslog.Entry `json:"requests"`
	Count      int               `json:"count"`
	LastUpdate string            `json:"last_update"`
}

// StreamPayload is one SSE data frame.
type StreamPayload struct {
	Requests  []accesslog.Entry      `json:"requests"`
	Pending   []types.PendingRequest `json:"pending"`
	Stats     map[string]int         `json:"stats"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResponse is the admission verdict. Allowed=false means the proxy
// synthesizes a 403 for the intercepted request.
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}
