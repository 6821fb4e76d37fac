package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bitmapadapter/internal/log"
	"bitmapadapter/internal/requestip"
)

// RateLimiter is a per-client token bucket refilled over one minute.
type RateLimiter struct {
	mu              sync.Mutex
	requestsPerMin  int
	clients         map[string]*clientBucket
	lockoutDuration time.Duration // optional lockout after violations
	maxViolations   int
	resolver        *requestip.Resolver
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type clientBucket struct {
	tokens      int
	lastRefill  time.Time
	violations  int
	lockedUntil time.Time
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	LockoutDuration   time.Duration
	MaxViolations     int
	Resolver          *requestip.Resolver // nil trusts no proxy headers
}

// NewRateLimiter creates a rate limiter and starts its stale-bucket
// cleanup loop. Call Stop to end the loop.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.MaxViolations == 0 {
		config.MaxViolations = 10
	}
	if config.Resolver == nil {
		config.Resolver = &requestip.Resolver{}
	}

	rl := &RateLimiter{
		requestsPerMin:  config.RequestsPerMinute,
		clients:         make(map[string]*clientBucket),
		lockoutDuration: config.LockoutDuration,
		maxViolations:   config.MaxViolations,
		resolver:        config.Resolver,
		now:             func() time.Time { return time.Now().UTC() },
		stop:            make(chan struct{}),
	}

	go rl.cleanupLoop(config.CleanupInterval)

	return rl
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over the limit with 429 and a JSON error body.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := rl.resolver.ClientIP(r)
			allowed, remaining, resetTime := rl.Allow(clientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				log.Warn("Rate limit exceeded for IP: %s on %s", clientIP, r.URL.Path)
				retryAfter := int(resetTime.Sub(rl.now()).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "too many requests",
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Allow takes a token for clientIP. It returns whether the request may
// proceed, the tokens left and when the bucket next refills.
func (rl *RateLimiter) Allow(clientIP string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, ok := rl.clients[clientIP]
	if !ok {
		bucket = &clientBucket{tokens: rl.requestsPerMin, lastRefill: now}
		rl.clients[clientIP] = bucket
	}

	if !bucket.lockedUntil.IsZero() {
		if now.Before(bucket.lockedUntil) {
			return false, 0, bucket.lockedUntil
		}
		bucket.lockedUntil = time.Time{}
		bucket.violations = 0
	}

	// Full refill after a minute, proportional refill before that.
	elapsed := now.Sub(bucket.lastRefill)
	if elapsed >= time.Minute {
		bucket.tokens = rl.requestsPerMin
		bucket.lastRefill = now
	} else if add := int(float64(rl.requestsPerMin) * elapsed.Seconds() / 60); add > 0 {
		bucket.tokens = min(bucket.tokens+add, rl.requestsPerMin)
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true, bucket.tokens, bucket.lastRefill.Add(time.Minute)
	}

	bucket.violations++
	if rl.lockoutDuration > 0 && bucket.violations >= rl.maxViolations {
		bucket.lockedUntil = now.Add(rl.lockoutDuration)
		log.Warn("Client %s locked out until %v after %d violations", clientIP, bucket.lockedUntil, bucket.violations)
		return false, 0, bucket.lockedUntil
	}
	return false, 0, bucket.lastRefill.Add(time.Minute)
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops buckets idle for ten minutes that are not locked out.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, bucket := range rl.clients {
		locked := !bucket.lockedUntil.IsZero() && now.Before(bucket.lockedUntil)
		if !locked && now.Sub(bucket.lastRefill) > 10*time.Minute {
			delete(rl.clients, ip)
		}
	}
}
