package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hwingest/internal/config"
	"hwingest/internal/pipeline"
	"hwingest/internal/stats"
)

func testServer() *Server {
	cfg := config.Config{
		APIKey:         "secret",
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		ChunkMaxTokens: 512,
		JobTTL:         time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, nil, nil, log)
	return NewServer(orch, stats.NewRecorder(time.Hour), log, cfg)
}

func TestHealthIsPublic(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := testServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("auth error content type = %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"error":"missing authorization"`) {
		t.Errorf("auth error body = %q", rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"invalid api key"`) {
		t.Errorf("auth error body = %q", rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest("GET", "/api/ingest/NOPE/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestChunksRequireCompletion(t *testing.T) {
	s := testServer()
	job := &pipeline.Job{ID: "J1", Status: pipeline.StatusChunking, UpdatedAt: time.Now()}
	if err := s.orchestrator.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/ingest/J1/chunks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while job is in flight, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"../../etc/passwd", "passwd"},
		{"normal.pdf", "normal.pdf"},
		{"", "unnamed"},
		{".", "unnamed"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChunkOverrides(t *testing.T) {
	s := testServer()
	base := s.orchestrator.ChunkDefaults()

	req := httptest.NewRequest("POST", "/?max_tokens=256&overlap_tokens=10", nil)
	cfg, ok := chunkOverrides(req, base)
	if !ok {
		t.Fatal("expected overrides to be detected")
	}
	if cfg.MaxTokens != 256 || cfg.OverlapTokens != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.MinTokens != base.MinTokens {
		t.Errorf("min tokens should fall back to default, got %d", cfg.MinTokens)
	}

	req = httptest.NewRequest("POST", "/", nil)
	if _, ok := chunkOverrides(req, base); ok {
		t.Error("expected no overrides on a bare request")
	}
}
