package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func probeRouter(tracker *Tracker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Routes(router, tracker)
	return router
}

func TestHealthEndpointPayload(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("1.0.0")
	tracker.AddCheck("menu_cache", true, "menu loaded")
	router := probeRouter(tracker)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("status field = %v, want healthy", body["status"])
	}
	if body["service"] != "vocare-restaurant-assistant" {
		t.Fatalf("service field = %v", body["service"])
	}
	if body["version"] != "1.0.0" {
		t.Fatalf("version field = %v", body["version"])
	}
	checks, ok := body["checks"].(map[string]any)
	if !ok {
		t.Fatalf("checks field = %T", body["checks"])
	}
	if _, ok := checks["menu_cache"]; !ok {
		t.Fatal("expected menu_cache check in payload")
	}
}

func TestHealthEndpointUnhealthy(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("1.0.0")
	tracker.SetHealthy(false)
	router := probeRouter(tracker)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestReadyEndpointTogglesWithTracker(t *testing.T) {
	t.Parallel()

	tracker := NewTracker("1.0.0")
	router := probeRouter(tracker)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before ready = %d, want 503", rec.Code)
	}

	tracker.SetReady(true)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status after ready = %d, want 200", rec.Code)
	}
}
