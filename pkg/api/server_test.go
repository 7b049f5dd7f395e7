package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netsentry-io/netsentry/pkg/accesslog"
	"github.com/netsentry-io/netsentry/pkg/api/service"
	"github.com/netsentry-io/netsentry/pkg/firewall"
	"github.com/netsentry-io/netsentry/pkg/pending"
	"github.com/netsentry-io/netsentry/pkg/rules"
)

type testEnv struct {
	mgmt      *Server
	admission *Server
	svc       *service.Monitor
	pending   *pending.Queue
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	rs := rules.NewStore(filepath.Join(dir, "network-rules.json"))
	if err := rs.Load(); err != nil {
		t.Fatal(err)
	}
	q := pending.NewQueue(filepath.Join(dir, "network-pending.json"), 0)
	logPath := filepath.Join(dir, "network-access.log")

	svc := service.NewMonitor(rs, q, logPath, quiet)
	engine := firewall.New(rs, q, accesslog.NewLogger(logPath), quiet)

	return &testEnv{
		mgmt:      NewManagementServer(Config{APIKey: apiKey}, svc, quiet),
		admission: NewAdmissionServer(Config{}, engine, quiet),
		svc:       svc,
		pending:   q,
	}
}

func do(t *testing.T, srv *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestAddListDeleteRule(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.mgmt, http.MethodPost, "/api/v1/rules",
		`{"target": "github.com", "action": "allow-domain"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("add rule: %d %s", w.Code, w.Body.String())
	}

	w = do(t, env.mgmt, http.MethodGet, "/api/v1/rules", "", nil)
	var listResp struct {
		Rules map[string]string `json:"rules"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if listResp.Count != 1 || listResp.Rules["github.com"] != "allow-domain" {
		t.Errorf("list: %+v", listResp)
	}

	w = do(t, env.mgmt, http.MethodDelete, "/api/v1/rules/github.com", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete rule: %d %s", w.Code, w.Body.String())
	}

	w = do(t, env.mgmt, http.MethodDelete, "/api/v1/rules/github.com", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing rule: %d", w.Code)
	}
}

func TestAddRuleValidation(t *testing.T) {
	env := newTestEnv(t, "")

	for _, body := range []string{
		`{"target": "", "action": "allow"}`,
		`{"target": "x.com"}`,
		`{"target": "x.com", "action": "block"}`,
		`not json`,
	} {
		w := do(t, env.mgmt, http.MethodPost, "/api/v1/rules", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, w.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, "sekrit")

	w := do(t, env.mgmt, http.MethodGet, "/api/v1/rules", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: %d", w.Code)
	}

	w = do(t, env.mgmt, http.MethodGet, "/api/v1/rules", "", map[string]string{"X-API-Key": "sekrit"})
	if w.Code != http.StatusOK {
		t.Errorf("valid key: %d", w.Code)
	}

	// Health stays open.
	w = do(t, env.mgmt, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health with auth enabled: %d", w.Code)
	}
}

func TestApproveFlowAcrossBothSurfaces(t *testing.T) {
	env := newTestEnv(t, "")

	// Two unmatched requests for the same host hit the admission surface.
	for _, path := range []string{"/a", "/b"} {
		body := `{"host": "h.example", "url": "https://h.example` + path +
			`", "method": "GET", "path": "` + path + `"}`
		w := do(t, env.admission, http.MethodPost, "/check", body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("check: %d %s", w.Code, w.Body.String())
		}
		var resp struct {
			Allowed bool `json:"allowed"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Allowed {
			t.Fatal("unmatched request allowed")
		}
	}

	env.svc.Refresh()
	w := do(t, env.mgmt, http.MethodGet, "/api/v1/pending", "", nil)
	var pendingResp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pendingResp); err != nil {
		t.Fatal(err)
	}
	if pendingResp.Count != 2 {
		t.Fatalf("pending count: %d", pendingResp.Count)
	}

	// Domain approval clears both entries and writes the rule.
	w = do(t, env.mgmt, http.MethodPost, "/api/v1/approve",
		`{"host": "h.example", "url": "https://h.example/a", "action": "allow-domain"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	if env.pending.Len() != 0 {
		t.Errorf("pending after domain approval: %d", env.pending.Len())
	}

	// The admission surface now allows the host (after its mtime poll).
	body := `{"host": "h.example", "url": "https://h.example/c", "method": "GET", "path": "/c"}`
	w = do(t, env.admission, http.MethodPost, "/check", body, nil)
	var resp struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Allowed {
		t.Error("approved host still denied")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t, "")

	seed := `{"github.com": "allow-domain", "*.ads.com": "deny-domain"}`
	w := do(t, env.mgmt, http.MethodPost, "/api/v1/import", seed, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	w = do(t, env.mgmt, http.MethodGet, "/api/v1/export", "", nil)
	exported := w.Body.String()

	w = do(t, env.mgmt, http.MethodPost, "/api/v1/import", exported, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("re-import: %d %s", w.Code, w.Body.String())
	}

	w = do(t, env.mgmt, http.MethodGet, "/api/v1/export", "", nil)
	var a, b map[string]string
	if err := json.Unmarshal([]byte(exported), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) || a["github.com"] != b["github.com"] || a["*.ads.com"] != b["*.ads.com"] {
		t.Errorf("round trip mismatch: %v vs %v", a, b)
	}
}

func TestImportRejectsInvalidAction(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.mgmt, http.MethodPost, "/api/v1/import", `{"x.com": "nonsense"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid import: %d", w.Code)
	}
	w = do(t, env.mgmt, http.MethodPost, "/api/v1/import", `["not", "an", "object"]`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("array import: %d", w.Code)
	}
}

func TestStatsAndRequestsEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	// Generate activity through the admission surface.
	body := `{"host": "x.example", "url": "https://x.example/", "method": "GET", "path": "/"}`
	do(t, env.admission, http.MethodPost, "/check", body, nil)
	env.svc.Refresh()

	w := do(t, env.mgmt, http.MethodGet, "/api/v1/stats", "", nil)
	var statsResp struct {
		Stats map[string]int `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &statsResp); err != nil {
		t.Fatal(err)
	}
	if statsResp.Stats["total"] != 1 || statsResp.Stats["pending"] != 1 {
		t.Errorf("stats: %v", statsResp.Stats)
	}

	w = do(t, env.mgmt, http.MethodGet, "/api/v1/requests?limit=5", "", nil)
	var reqResp struct {
		Requests []accesslog.Entry `json:"requests"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &reqResp); err != nil {
		t.Fatal(err)
	}
	if reqResp.Count != 1 || reqResp.Requests[0].Decision != "PENDING" {
		t.Errorf("requests: %+v", reqResp)
	}
}

func TestHealthReportsRuleCount(t *testing.T) {
	env := newTestEnv(t, "")
	do(t, env.mgmt, http.MethodPost, "/api/v1/rules",
		`{"target": "a.com", "action": "allow-domain"}`, nil)

	w := do(t, env.mgmt, http.MethodGet, "/health", "", nil)
	var health struct {
		Status     string `json:"status"`
		RulesCount int    `json:"rules_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.RulesCount != 1 {
		t.Errorf("health: %+v", health)
	}
}

func TestStreamEmitsOnTokenChange(t *testing.T) {
	env := newTestEnv(t, "")
	env.svc.Refresh()

	srv := httptest.NewServer(env.mgmt.Engine())
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/api/v1/stream")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type: %q", ct)
	}

	// The default 1s tick plus the already-refreshed cache yields a frame.
	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	frame := string(buf[:n])
	if !strings.HasPrefix(frame, "data: ") {
		t.Fatalf("frame: %q", frame)
	}

	var payload struct {
		Stats     map[string]int `json:"stats"`
		Timestamp string         `json:"timestamp"`
	}
	jsonPart := strings.TrimSuffix(strings.TrimPrefix(frame, "data: "), "\n\n")
	if err := json.Unmarshal([]byte(jsonPart), &payload); err != nil {
		t.Fatalf("frame payload: %v (%q)", err, jsonPart)
	}
	if payload.Timestamp == "" {
		t.Error("frame missing timestamp token")
	}
}
