package api_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/insightforge/fabric-analytics/internal/api"
	"github.com/insightforge/fabric-analytics/internal/api/handlers"
	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/insightforge/fabric-analytics/internal/tasks"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	os.Unsetenv("FABRIC_API_KEYS")

	cfg := &config.Config{
		Version:   "test",
		RateLimit: config.RateLimitConfig{WorkflowPerMinute: 5},
	}
	h := handlers.New(nil, nil, nil, nil, nil, tasks.NewRunner())
	return api.NewRouter(cfg, h)
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/api/fabric/capabilities", http.StatusOK},
		// No engine configured in the test wiring
		{http.MethodPost, "/api/fabric/intelligent", http.StatusBadRequest},
		{http.MethodGet, "/api/fabric/intelligent", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nonexistent", http.StatusNotFound},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}

func TestWorkflowRateLimit(t *testing.T) {
	router := newTestRouter(t)

	// All requests come from httptest's fixed client address, so the
	// sixth within the window must be rejected.
	var last int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/intelligent-workflow", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("sixth workflow request: status = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestPreflightBypassesAPIKeyAuth(t *testing.T) {
	os.Setenv("FABRIC_API_KEYS", "valid-key")
	defer os.Unsetenv("FABRIC_API_KEYS")

	cfg := &config.Config{
		Version:   "test",
		RateLimit: config.RateLimitConfig{WorkflowPerMinute: 5},
	}
	h := handlers.New(nil, nil, nil, nil, nil, tasks.NewRunner())
	router := api.NewRouter(cfg, h)

	// A browser preflight carries no API key; CORS must answer it.
	req := httptest.NewRequest(http.MethodOptions, "/api/fabric/intelligent", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusUnauthorized {
		t.Fatalf("preflight rejected with 401; CORS must run before auth")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("preflight response missing Access-Control-Allow-Origin")
	}

	// Actual requests still require the key.
	req2 := httptest.NewRequest(http.MethodPost, "/api/fabric/intelligent", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	if w2.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST: status = %d, want %d", w2.Code, http.StatusUnauthorized)
	}
}

func TestRateLimitDoesNotCoverAnalyze(t *testing.T) {
	router := newTestRouter(t)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/fabric/intelligent", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("analyze request %d rate limited", i+1)
		}
	}
}
