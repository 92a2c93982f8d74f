package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/threatstage/threatstage/internal/core"
	"github.com/threatstage/threatstage/internal/engine"
)

// testServer builds a server over a quiet engine with the bus disabled. The
// engine is never started, so no background loops run during tests.
func testServer(t *testing.T, mutate func(*core.Config)) *Server {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Bus.Enabled = false
	cfg.Archive.Enabled = false
	cfg.Logging.Level = "error"
	if mutate != nil {
		mutate(cfg)
	}
	eng, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return NewServer(eng)
}

func doRequest(s *Server, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestServer_Health(t *testing.T) {
	s := testServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["status"] != "healthy" {
		t.Error("wrong health body")
	}
}

func TestServer_Status(t *testing.T) {
	s := testServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "running" {
		t.Errorf("wrong status: %v", body["status"])
	}
	if body["plan_limit"].(float64) != 15 {
		t.Errorf("wrong plan limit: %v", body["plan_limit"])
	}
}

func TestServer_TriggerScheduled(t *testing.T) {
	s := testServer(t, nil)
	rec := doRequest(s, http.MethodPost, "/api/v1/attack/trigger", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "scheduled" {
		t.Fatalf("expected scheduled, got %v", body)
	}
	if body["chain_id"] == nil || len(body["chain_id"].(string)) != 8 {
		t.Errorf("missing or malformed chain_id: %v", body["chain_id"])
	}
	dur := body["approx_duration_sec"].(float64)
	if dur < 20 || dur > 40 {
		t.Errorf("duration %v outside 20-40s", dur)
	}
}

func TestServer_TriggerCooldownThrottled(t *testing.T) {
	s := testServer(t, nil)
	first := doRequest(s, http.MethodPost, "/api/v1/attack/trigger", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first trigger: %d", first.Code)
	}
	second := doRequest(s, http.MethodPost, "/api/v1/attack/trigger", nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	body := decodeBody(t, second)
	if body["status"] != "throttled" || body["reason"] != "cooldown_active" {
		t.Errorf("wrong throttle body: %v", body)
	}
	if body["retry_after"].(float64) <= 0 {
		t.Errorf("retry_after should be positive: %v", body["retry_after"])
	}
}

func TestServer_TriggerBusyAtCeiling(t *testing.T) {
	s := testServer(t, func(cfg *core.Config) {
		cfg.Sim.MaxActivePlans = 1
		cfg.Sim.TriggerCooldown = 0.001
	})
	if rec := doRequest(s, http.MethodPost, "/api/v1/attack/trigger", nil); rec.Code != http.StatusOK {
		t.Fatalf("first trigger: %d", rec.Code)
	}
	time.Sleep(5 * time.Millisecond)

	rec := doRequest(s, http.MethodPost, "/api/v1/attack/trigger", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("busy should still be 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "busy" || body["reason"] != "max_active_plans_reached" {
		t.Errorf("expected busy result, got %v", body)
	}
}

func TestServer_TriggerRejectsGet(t *testing.T) {
	s := testServer(t, nil)
	if rec := doRequest(s, http.MethodGet, "/api/v1/attack/trigger", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestServer_ShutdownRejectsGet(t *testing.T) {
	s := testServer(t, nil)
	if rec := doRequest(s, http.MethodGet, "/api/v1/shutdown", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestServer_EventsEmptyFeed(t *testing.T) {
	s := testServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/api/v1/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["total"].(float64) != 0 {
		t.Error("fresh feed should hold no events")
	}
}

func TestServer_EventsServesStoredEvents(t *testing.T) {
	s := testServer(t, nil)
	s.engine.Store.Add(&core.Event{
		SourceIP: "203.0.113.9",
		Severity: core.SeverityCritical,
		Stage:    core.StageExploit,
		ChainID:  "abcd1234",
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/events?severity=critical", nil)
	body := decodeBody(t, rec)
	if body["total"].(float64) != 1 {
		t.Fatalf("expected 1 critical event, got %v", body["total"])
	}
	ev := body["events"].([]any)[0].(map[string]any)
	if ev["recommendation"] != "isolate" {
		t.Errorf("exploit event should recommend isolate, got %v", ev["recommendation"])
	}
}

func TestServer_EventsInvalidSeverity(t *testing.T) {
	s := testServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/api/v1/events?severity=scary", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_EventByID(t *testing.T) {
	s := testServer(t, nil)
	stored, _ := s.engine.Store.Add(&core.Event{
		SourceIP: "203.0.113.9",
		Severity: core.SeverityBenign,
		Stage:    core.StageNoise,
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/events/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if int64(body["id"].(float64)) != stored.ID {
		t.Errorf("wrong event returned: %v", body["id"])
	}

	if rec := doRequest(s, http.MethodGet, "/api/v1/events/9999", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id should 404, got %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/api/v1/events/zero", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("junk id should 400, got %d", rec.Code)
	}
}

func TestServer_DashboardIdempotentWithoutWrites(t *testing.T) {
	s := testServer(t, nil)
	s.engine.Store.Add(&core.Event{
		SourceIP: "203.0.113.9",
		Severity: core.SeveritySuspicious,
		Stage:    core.StageRecon,
		ChainID:  "abcd1234",
	})

	a := doRequest(s, http.MethodGet, "/api/v1/dashboard", nil)
	b := doRequest(s, http.MethodGet, "/api/v1/dashboard", nil)
	if a.Code != http.StatusOK || b.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", a.Code, b.Code)
	}
	if a.Body.String() != b.Body.String() {
		t.Errorf("dashboard changed with no writes:\n%s\n%s", a.Body.String(), b.Body.String())
	}
	if decodeBody(t, a)["posture"] != "ELEVATED" {
		t.Errorf("suspicious event should elevate posture, got %v", decodeBody(t, a)["posture"])
	}
}

func TestServer_ConfigRedactsKeys(t *testing.T) {
	s := testServer(t, func(cfg *core.Config) {
		cfg.Server.APIKeys = []string{"secret"}
	})
	rec := doRequest(s, http.MethodGet, "/api/v1/config", map[string]string{
		"Authorization": "Bearer secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cfg core.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cfg.Server.APIKeys) != 0 {
		t.Error("API keys must never leave the server")
	}
}

func TestServer_AuthRequiredWhenKeysConfigured(t *testing.T) {
	s := testServer(t, func(cfg *core.Config) {
		cfg.Server.APIKeys = []string{"secret"}
	})

	if rec := doRequest(s, http.MethodGet, "/api/v1/status", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key should 401, got %d", rec.Code)
	}
	wrong := map[string]string{"X-API-Key": "nope"}
	if rec := doRequest(s, http.MethodGet, "/api/v1/status", wrong); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key should 403, got %d", rec.Code)
	}
	bearer := map[string]string{"Authorization": "Bearer secret"}
	if rec := doRequest(s, http.MethodGet, "/api/v1/status", bearer); rec.Code != http.StatusOK {
		t.Errorf("valid bearer should 200, got %d", rec.Code)
	}
	header := map[string]string{"X-API-Key": "secret"}
	if rec := doRequest(s, http.MethodGet, "/api/v1/status", header); rec.Code != http.StatusOK {
		t.Errorf("valid X-API-Key should 200, got %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("/health should be exempt from auth, got %d", rec.Code)
	}
}

func TestServer_LogsEndpoint(t *testing.T) {
	s := testServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/api/v1/logs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, ok := body["logs"]; !ok {
		t.Error("missing logs field")
	}
}

func TestThrottle_PerMinuteCap(t *testing.T) {
	th := newTriggerThrottle(time.Millisecond, 3)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		if verdict := th.check("10.0.0.1", now); verdict != nil {
			t.Fatalf("trigger %d should pass: %v", i, verdict)
		}
	}
	verdict := th.check("10.0.0.1", now.Add(time.Second))
	if verdict == nil || verdict["reason"] != "rate_limit_per_minute" {
		t.Fatalf("fourth trigger should hit the per-minute cap: %v", verdict)
	}

	// A minute later the history has rolled off.
	if verdict := th.check("10.0.0.1", now.Add(2*time.Minute)); verdict != nil {
		t.Errorf("cap should release after the window: %v", verdict)
	}
}

func TestThrottle_ClientsIndependent(t *testing.T) {
	th := newTriggerThrottle(10*time.Second, 30)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if verdict := th.check("10.0.0.1", now); verdict != nil {
		t.Fatalf("first client should pass: %v", verdict)
	}
	if verdict := th.check("10.0.0.2", now); verdict != nil {
		t.Errorf("second client must not inherit the first client's cooldown: %v", verdict)
	}
}
