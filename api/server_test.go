package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/orchestrator"
)

func TestServer_Routes(t *testing.T) {
	runner := &fakeRunner{
		events: []orchestrator.Event{{Type: orchestrator.EventDone}},
		state:  orchestrator.StateDone,
	}
	srv := httptest.NewServer(NewServer(runner, log.NewNop()).Handler())
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "stream", method: http.MethodPost, path: "/api/chat/stream", body: `{"content":"a real question"}`, wantStatus: http.StatusOK},
		{name: "stop", method: http.MethodPost, path: "/api/chat/stop", body: `{}`, wantStatus: http.StatusOK},
		{name: "stream wrong method", method: http.MethodGet, path: "/api/chat/stream", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}
