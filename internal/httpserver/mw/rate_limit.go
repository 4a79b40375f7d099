package mw

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/utils"
)

// RateLimitConfig bounds how often one client may hit remote-touching
// routes.
type RateLimitConfig struct {
	Burst      int           // requests allowed at once
	PerMinute  int           // tokens regained per minute
	IdleTTL    time.Duration // buckets unused this long are dropped
	TrustProxy bool
	Now        func() time.Time
}

type bucket struct {
	tokens   float64
	updated  time.Time
	lastSeen time.Time
}

// tokenBuckets keeps one bucket per client under a single mutex.
type tokenBuckets struct {
	cfg     RateLimitConfig
	perSec  float64
	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

func newTokenBuckets(cfg RateLimitConfig) *tokenBuckets {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &tokenBuckets{
		cfg:     cfg,
		perSec:  float64(cfg.PerMinute) / 60,
		buckets: make(map[string]*bucket),
		swept:   cfg.Now(),
	}
}

// take consumes one token for key. When none is left it returns how long
// until one is.
func (tb *tokenBuckets) take(key string) (bool, time.Duration) {
	now := tb.cfg.Now()

	tb.mu.Lock()
	defer tb.mu.Unlock()

	if now.Sub(tb.swept) >= tb.cfg.IdleTTL {
		for k, b := range tb.buckets {
			if now.Sub(b.lastSeen) > tb.cfg.IdleTTL {
				delete(tb.buckets, k)
			}
		}
		tb.swept = now
	}

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.cfg.Burst), updated: now}
		tb.buckets[key] = b
	}
	b.lastSeen = now

	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = min(float64(tb.cfg.Burst), b.tokens+elapsed*tb.perSec)
		b.updated = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / tb.perSec * float64(time.Second))
	return false, wait
}

// RateLimit answers 429 with Retry-After once a client spends its burst.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	tb := newTokenBuckets(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := tb.take(utils.ClientIP(r, tb.cfg.TrustProxy))
			if !ok {
				secs := int(wait.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
