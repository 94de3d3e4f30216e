package httpserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/vidmesh/signal-relay/internal/config"
)

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(cfg, logger, BuildInfo{Commit: "abc123", BuildTime: "2026-01-01T00:00:00Z"})
	s.ready.Store(true)
	return s
}

func doRequest(t *testing.T, s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type=%q", ct)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := doRequest(t, s, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	s.ready.Store(false)
	rec = doRequest(t, s, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503 when not ready", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := doRequest(t, s, http.MethodGet, "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	var build BuildInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &build); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if build.Commit != "abc123" {
		t.Fatalf("Commit=%q, want abc123", build.Commit)
	}
}

func TestICEEndpoint(t *testing.T) {
	cfg := config.Config{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
		},
	}
	s := newTestServer(t, cfg)

	rec := doRequest(t, s, http.MethodGet, "/webrtc/ice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	var body struct {
		ICEServers []webrtc.ICEServer `json:"iceServers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.ICEServers) != 1 || body.ICEServers[0].URLs[0] != "stun:stun.example.com:3478" {
		t.Fatalf("iceServers=%v", body.ICEServers)
	}
}

func TestICEEndpoint_EmptyListIsArray(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := doRequest(t, s, http.MethodGet, "/webrtc/ice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"iceServers":[]`) {
		t.Fatalf("body=%q, want empty array", rec.Body.String())
	}
}

func TestOriginPolicy(t *testing.T) {
	cfg := config.Config{
		AllowedOrigins: []string{"https://app.example.com"},
	}
	s := newTestServer(t, cfg)

	rec := doRequest(t, s, http.MethodGet, "/webrtc/ice", map[string]string{
		"Origin": "https://app.example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("allowed origin: status=%d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Access-Control-Allow-Origin=%q", got)
	}

	rec = doRequest(t, s, http.MethodGet, "/webrtc/ice", map[string]string{
		"Origin": "https://evil.example.com",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rejected origin: status=%d, want 403", rec.Code)
	}
}

func TestOriginPolicy_Preflight(t *testing.T) {
	cfg := config.Config{
		AllowedOrigins: []string{"https://app.example.com"},
	}
	s := newTestServer(t, cfg)

	rec := doRequest(t, s, http.MethodOptions, "/webrtc/ice", map[string]string{
		"Origin": "https://app.example.com",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "GET") {
		t.Fatalf("Access-Control-Allow-Methods=%q", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer(t, config.Config{})
	handler := chain(s.mux, requestIDMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("X-Request-ID missing from response")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "caller-id" {
		t.Fatalf("X-Request-ID=%q, want caller-id", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), recoverMiddleware(logger))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
}
