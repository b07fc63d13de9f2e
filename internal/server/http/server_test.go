package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/runtime"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.LongPoll.TimeoutMs = 50
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	return New(rt, logger)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestPublishHandler(t *testing.T) {
	s := newTestServer(t)
	body := `{"channel":"tasks","event":{"type":"task.created","tenantId":"t1","entityKind":"task","entityId":"1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/publish", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Seq uint64 `json:"seq"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Seq != 1 {
		t.Fatalf("seq: %d", resp.Seq)
	}
}

func TestPublishHandlerTenantFromHeader(t *testing.T) {
	s := newTestServer(t)
	body := `{"channel":"tasks","event":{"type":"task.created"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/publish", strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", "t-header")
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body.String())
	}
}

func TestPublishHandlerRejectsMissingChannel(t *testing.T) {
	s := newTestServer(t)
	body := `{"event":{"type":"task.created","tenantId":"t1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/publish", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestTenantCreateHandler(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/create", strings.NewReader(`{"tenant":"t9"}`))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	var stats struct {
		Pool struct {
			Connections int `json:"connections"`
		} `json:"pool"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Pool.Connections != 0 {
		t.Fatalf("connections: %d", stats.Pool.Connections)
	}
}

func TestMetricsHandler(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "realtime_connections_active") {
		t.Fatalf("scrape output missing engine collectors")
	}
}

func TestPollHandlerReturnsBuffered(t *testing.T) {
	s := newTestServer(t)
	body := `{"channel":"tasks","event":{"type":"task.created","tenantId":"default"}}`
	pub := httptest.NewRequest(http.MethodPost, "/v1/events/publish", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, pub)
	if w.Code != http.StatusOK {
		t.Fatalf("publish status: %d", w.Code)
	}

	since := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339Nano)
	req := httptest.NewRequest(http.MethodGet, "/v1/poll/tasks?lastEventId="+since, nil)
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("poll status: %d", w.Code)
	}
	var resp struct {
		Events      []json.RawMessage `json:"events"`
		LastEventID string            `json:"lastEventId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("events: %d", len(resp.Events))
	}
	if resp.LastEventID == "" {
		t.Fatalf("missing watermark")
	}
}

func TestPollHandlerTimesOutEmpty(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/poll/finance", nil)
	w := httptest.NewRecorder()
	start := time.Now()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("poll returned before its timeout")
	}
	var resp struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 0 {
		t.Fatalf("events: %d", len(resp.Events))
	}
}

func TestPollHandlerRejectsMissingChannel(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/poll/", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}
