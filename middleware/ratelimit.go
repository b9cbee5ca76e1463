package middleware

import (
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second.
	Rate  float64
	Burst int
	// KeyFunc picks the bucket for a request. Default: the remote IP.
	KeyFunc func(r *request.Request) string
	// OnLimit builds the rejection. Default: a 429 problem document.
	OnLimit handler.Handler
	// CleanupInterval is how often idle buckets are pruned (default 1m).
	CleanupInterval time.Duration
	// MaxIdle is how long a bucket may go unused before pruning (default 5m).
	MaxIdle time.Duration

	now func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func remoteIP(r *request.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit applies a token bucket per key. Rejected requests get a
// Retry-After header and never reach the next handler.
func RateLimit(cfg RateLimitConfig) router.Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteIP
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = func(_ *request.Request) response.Response {
			return response.NewProblem(response.StatusTooManyRequests, "rate limit exceeded").IntoResponse()
		}
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	retryAfter := "1"
	if cfg.Rate > 0 {
		retryAfter = strconv.FormatFloat(math.Ceil(1/cfg.Rate), 'f', 0, 64)
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			key := cfg.KeyFunc(r)

			mu.Lock()
			now := cfg.now()
			if now.Sub(lastCleanup) >= cfg.CleanupInterval {
				for k, e := range limiters {
					if now.Sub(e.lastSeen) > cfg.MaxIdle {
						delete(limiters, k)
					}
				}
				lastCleanup = now
			}

			entry, ok := limiters[key]
			if !ok {
				entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
				limiters[key] = entry
			}
			entry.lastSeen = now
			allowed := entry.limiter.AllowN(now, 1)
			mu.Unlock()

			if !allowed {
				return response.From(cfg.OnLimit(r)).WithHeader("Retry-After", retryAfter)
			}
			return next(r)
		}
	}
}
