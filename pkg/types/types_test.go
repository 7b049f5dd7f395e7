package types

import (
	"strings"
	"testing"
	"time"
)

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"allow", "deny", "allow-domain", "deny-domain"} {
		if _, err := ParseAction(valid); err != nil {
			t.Errorf("ParseAction(%q) returned error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "ALLOW", "block", "allow-url"} {
		if _, err := ParseAction(invalid); err == nil {
			t.Errorf("ParseAction(%q) accepted invalid action", invalid)
		}
	}
}

func TestVerdictAtURLTier(t *testing.T) {
	cases := []struct {
		action  Action
		allowed bool
		decided bool
	}{
		{ActionAllow, true, true},
		{ActionDeny, false, true},
		{ActionAllowDomain, false, false},
		{ActionDenyDomain, false, false},
	}
	for _, tc := range cases {
		allowed, decided := tc.action.VerdictAt(TierURL)
		if allowed != tc.allowed || decided != tc.decided {
			t.Errorf("%s at URL tier: got (%v, %v), want (%v, %v)",
				tc.action, allowed, decided, tc.allowed, tc.decided)
		}
	}
}

func TestVerdictAtHostTierIsLenient(t *testing.T) {
	for _, tier := range []MatchTier{TierHost, TierWildcard} {
		for _, tc := range []struct {
			action  Action
			allowed bool
		}{
			{ActionAllow, true},
			{ActionAllowDomain, true},
			{ActionDeny, false},
			{ActionDenyDomain, false},
		} {
			allowed, decided := tc.action.VerdictAt(tier)
			if !decided {
				t.Errorf("%s should decide at tier %d", tc.action, tier)
			}
			if allowed != tc.allowed {
				t.Errorf("%s at tier %d: allowed=%v, want %v", tc.action, tier, allowed, tc.allowed)
			}
		}
	}
}

func TestNewPendingRequest(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
	p := NewPendingRequest(Request{
		Host:   "example.com",
		URL:    "https://example.com/a",
		Method: "GET",
		Path:   "/a",
	}, now)

	if p.Host != "example.com" || p.URL != "https://example.com/a" {
		t.Fatalf("unexpected pending entry: %+v", p)
	}
	if p.Timestamp != "2025-03-14T09:26:53" {
		t.Errorf("timestamp format: got %q", p.Timestamp)
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateTraceID()
	if !strings.HasPrefix(id, "dec_") {
		t.Errorf("trace id missing prefix: %q", id)
	}
	if id == GenerateTraceID() {
		t.Error("consecutive IDs collided")
	}
}
