package dto

// AddRuleRequest is the body for creating or updating a rule.
type AddRuleRequest struct {
	Target string `json:"target"`
	Action string `json:"action"`
}

// ApproveRequest is the body for disposing of a pending request.
// Action is one of allow-domain, deny-domain, allow-url, deny-url.
type ApproveRequest struct {
	Host   string `json:"host"`
	URL    string `json:"url"`
	Action string `json:"action"`
}

// CheckRequest is the admission body submitted by the intercepting proxy.
type CheckRequest struct {
	Host   string `json:"host"`
	URL    string `json:"url"`
	Method string `json:"method"`
	Path   string `json:"path"`
}
