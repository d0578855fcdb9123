package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: false})
	called := false
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/indexes/parcels/knn", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to run when rate limiting is disabled")
	}
}

func TestRateLimitMiddleware_PerIPExceeded(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true, PerIP: true, RequestsPerSec: 1, Burst: 1})
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/indexes/parcels/knn", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("expected second request to be rate limited, got %d", rec2.Code)
	}
}

func TestRateLimitMiddleware_PerIndexExceeded(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true, PerIndex: true, RequestsPerSec: 1, Burst: 1})
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Two different clients querying the same index share its budget.
	req1 := httptest.NewRequest(http.MethodPost, "/v1/indexes/parcels/knn", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	req2 := httptest.NewRequest(http.MethodPost, "/v1/indexes/parcels/knn", nil)
	req2.RemoteAddr = "10.0.0.2:5678"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("expected second client to be rate limited against the same index, got %d", rec2.Code)
	}

	// A different index has its own independent budget.
	req3 := httptest.NewRequest(http.MethodPost, "/v1/indexes/buildings/knn", nil)
	req3.RemoteAddr = "10.0.0.3:9999"
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)
	if rec3.Code != http.StatusOK {
		t.Errorf("expected a different index to have its own budget, got %d", rec3.Code)
	}
}

func TestRateLimitMiddleware_GlobalLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true, GlobalLimit: true, RequestsPerSec: 1, Burst: 1})
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	reqA := httptest.NewRequest(http.MethodGet, "/v1/indexes/parcels/knn", nil)
	reqA.RemoteAddr = "10.0.0.1:1234"
	reqB := httptest.NewRequest(http.MethodGet, "/v1/indexes/parcels/knn", nil)
	reqB.RemoteAddr = "10.0.0.2:5678"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, reqA)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, reqB)
	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("expected global limit to block a different client, got %d", rec2.Code)
	}
}
