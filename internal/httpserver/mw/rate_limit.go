package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/utils"
)

// RateLimitConfig tunes the per-client token bucket. The daemon normally
// serves a single extension on loopback, so the defaults are generous;
// the limiter mostly guards against a misbehaving page hammering the API.
type RateLimitConfig struct {
	Burst         int           // bucket capacity
	RefillPerMin  int           // tokens restored per client per minute
	MaxClients    int           // sweep idle buckets once this many exist (0 = unbounded)
	SweepInterval time.Duration // minimum time between idle sweeps
	IdleTTL       time.Duration // bucket age after which it is reclaimed
	TrustProxy    bool          // resolve the client from proxy headers
}

func (cfg *RateLimitConfig) fillDefaults() {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
}

type tokenBucket struct {
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

type rateLimiter struct {
	cfg       RateLimitConfig
	perSecond float64

	mu        sync.Mutex
	clients   map[string]*tokenBucket
	lastSweep time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	cfg.fillDefaults()
	return &rateLimiter{
		cfg:       cfg,
		perSecond: float64(cfg.RefillPerMin) / 60.0,
		clients:   make(map[string]*tokenBucket),
		lastSweep: time.Now(),
	}
}

// take spends one token for key, refilling first. When the bucket is
// empty it reports how long the client should wait before retrying.
func (rl *rateLimiter) take(key string, now time.Time) (ok bool, remaining, retryAfterSec int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.cfg.SweepInterval ||
		(rl.cfg.MaxClients > 0 && len(rl.clients) >= rl.cfg.MaxClients) {
		rl.sweepLocked(now)
	}

	b := rl.clients[key]
	if b == nil {
		b = &tokenBucket{tokens: float64(rl.cfg.Burst), refilled: now}
		rl.clients[key] = b
	}

	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(rl.cfg.Burst), b.tokens+elapsed*rl.perSecond)
		b.refilled = now
	}
	b.lastSeen = now

	if b.tokens < 1.0 {
		wait := int(math.Ceil((1.0 - b.tokens) / rl.perSecond))
		if wait < 1 {
			wait = 1
		}
		return false, 0, wait
	}

	b.tokens--
	return true, int(b.tokens), 0
}

func (rl *rateLimiter) sweepLocked(now time.Time) {
	for key, b := range rl.clients {
		if now.Sub(b.lastSeen) > rl.cfg.IdleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// RateLimit returns a middleware enforcing a per-client token bucket,
// keyed by resolved client IP.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	rl := newRateLimiter(cfg)
	limitHeader := strconv.Itoa(rl.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, rl.cfg.TrustProxy)

			ok, remaining, retry := rl.take(key, time.Now())
			w.Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
