package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitmapadapter/internal/requestip"
)

func newTestLimiter(t *testing.T, cfg RateLimitConfig) (*RateLimiter, *time.Time) {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	limiter := NewRateLimiter(cfg)
	t.Cleanup(limiter.Stop)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	return limiter, &clock
}

func TestRateLimit_AllowsRequestsUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 10})

	for i := 0; i < 10; i++ {
		allowed, remaining, _ := limiter.Allow("192.168.1.1")
		if !allowed {
			t.Errorf("Request %d should be allowed, but was blocked", i+1)
		}
		if want := 10 - i - 1; remaining != want {
			t.Errorf("Request %d: expected %d remaining, got %d", i+1, want, remaining)
		}
	}
}

func TestRateLimit_BlocksRequestsOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 5})

	for i := 0; i < 5; i++ {
		if allowed, _, _ := limiter.Allow("192.168.1.2"); !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	allowed, remaining, _ := limiter.Allow("192.168.1.2")
	if allowed {
		t.Error("Request over limit should be blocked")
	}
	if remaining != 0 {
		t.Errorf("Expected 0 remaining tokens, got %d", remaining)
	}
}

func TestRateLimit_LimitResetsAfterTimeWindow(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 3})

	for i := 0; i < 3; i++ {
		limiter.Allow("192.168.1.3")
	}
	if allowed, _, _ := limiter.Allow("192.168.1.3"); allowed {
		t.Fatal("Request should be blocked after exhausting limit")
	}

	*clock = clock.Add(61 * time.Second)
	if allowed, remaining, _ := limiter.Allow("192.168.1.3"); !allowed || remaining != 2 {
		t.Fatalf("expected a full refill, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestRateLimit_PartialRefill(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 60})

	for i := 0; i < 60; i++ {
		limiter.Allow("192.168.1.4")
	}
	*clock = clock.Add(5 * time.Second)
	allowed, remaining, _ := limiter.Allow("192.168.1.4")
	if !allowed || remaining != 4 {
		t.Fatalf("expected 5 tokens refilled, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestRateLimit_DifferentIPsTrackedSeparately(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 1})

	if allowed, _, _ := limiter.Allow("10.0.0.1"); !allowed {
		t.Fatal("first IP should be allowed")
	}
	if allowed, _, _ := limiter.Allow("10.0.0.2"); !allowed {
		t.Fatal("second IP should have its own bucket")
	}
	if allowed, _, _ := limiter.Allow("10.0.0.1"); allowed {
		t.Fatal("first IP should now be blocked")
	}
}

func TestRateLimit_LockoutAfterViolations(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimitConfig{
		RequestsPerMinute: 1,
		LockoutDuration:   5 * time.Minute,
		MaxViolations:     3,
	})

	limiter.Allow("10.0.0.9")
	for i := 0; i < 3; i++ {
		limiter.Allow("10.0.0.9")
	}
	_, _, reset := limiter.Allow("10.0.0.9")
	if want := clock.Add(5 * time.Minute); !reset.Equal(want) {
		t.Fatalf("expected lockout until %v, got %v", want, reset)
	}

	// A refill alone does not lift the lockout.
	*clock = clock.Add(2 * time.Minute)
	if allowed, _, _ := limiter.Allow("10.0.0.9"); allowed {
		t.Fatal("client should still be locked out")
	}

	*clock = clock.Add(4 * time.Minute)
	if allowed, _, _ := limiter.Allow("10.0.0.9"); !allowed {
		t.Fatal("client should be allowed once the lockout expires")
	}
}

func TestRateLimit_CleanupRemovesStaleEntries(t *testing.T) {
	limiter, clock := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 5})

	limiter.Allow("10.0.0.1")
	*clock = clock.Add(11 * time.Minute)
	limiter.Allow("10.0.0.2")
	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.clients["10.0.0.1"]; ok {
		t.Error("stale bucket should have been removed")
	}
	if _, ok := limiter.clients["10.0.0.2"]; !ok {
		t.Error("fresh bucket should remain")
	}
}

func TestRateLimit_MiddlewareReturns429(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 1})
	h := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/bitmaps/import", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected rate limit headers: %v", w.Header())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRateLimit_UsesTrustedProxyHeader(t *testing.T) {
	resolver, err := requestip.NewResolver("10.0.0.0/8")
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	limiter, _ := newTestLimiter(t, RateLimitConfig{RequestsPerMinute: 1, Resolver: resolver})
	h := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("POST", "/", nil)
		req.RemoteAddr = "10.0.0.1:80"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("client %s behind the proxy should have its own bucket, got %d", client, w.Code)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("abc")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 under the limit, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("abcdefgh")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 over the limit, got %d", w.Code)
	}
}

func TestTimeoutSetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil).WithContext(context.Background()))

	if !ok {
		t.Fatal("expected a deadline on the request context")
	}
	if time.Until(deadline) > time.Second {
		t.Fatalf("deadline too far away: %v", deadline)
	}
}

