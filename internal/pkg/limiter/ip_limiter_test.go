package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestIPRateLimiter_BurstThenDeny(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)
	t.Cleanup(l.Close)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("other IPs have their own bucket")
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 1)
	t.Cleanup(l.Close)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		r := httptest.NewRequest(http.MethodGet, "/token", nil)
		r.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != want {
			t.Fatalf("request %d: got status %d, want %d", i, w.Code, want)
		}
	}
}
