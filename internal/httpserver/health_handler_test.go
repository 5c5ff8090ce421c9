package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleHealth_HealthyWithNoUpstream(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, r)

	// Address client is nil in the test fixture, so upstream is "down",
	// which must surface as an overall 503.
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var env APIEnvelope[healthResponseData]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Status != "down" {
		t.Errorf("overall status = %q, want down", env.Data.Status)
	}
	if env.Data.Components["upstream"].Status != "down" {
		t.Errorf("upstream status = %q, want down", env.Data.Components["upstream"].Status)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestHandleHealth_DetailedIncludesRawStats(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/health?detailed=true", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, r)

	var env APIEnvelope[healthResponseData]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Components["apiKeys"].Detail == nil {
		t.Errorf("expected detail to be populated when detailed=true")
	}
}
