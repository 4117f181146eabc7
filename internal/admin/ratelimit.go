package admin

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/ownership-indexer/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	staleLimiterTTL = 10 * time.Minute
	cleanupInterval = time.Minute

	defaultVerifyRPS   = 5
	defaultVerifyBurst = 10
)

// route is one rate-limited slice of the admin API. The first matching
// route wins, so more specific prefixes come first.
type route struct {
	name   string
	method string // "" matches any
	prefix string
	rps    rate.Limit
	burst  int
}

// retryAfter is the whole number of seconds until one token refills.
func (r route) retryAfter() string {
	if r.rps <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1/float64(r.rps) - 1e-9)))
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits admin requests per route and client IP.
// Paths outside every route (/healthz, /metrics) pass through.
type RateLimitMiddleware struct {
	routes []route
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter // route name + "|" + client IP
	nowFunc  func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimitMiddleware applies rps/burst to /admin/verify, one call per
// minute to forget-unknown and 1 rps to the remaining admin endpoints.
// Stop releases the cleanup goroutine.
func NewRateLimitMiddleware(rps float64, burst int, logger *slog.Logger) *RateLimitMiddleware {
	if rps <= 0 {
		rps = defaultVerifyRPS
	}
	if burst <= 0 {
		burst = defaultVerifyBurst
	}
	rl := &RateLimitMiddleware{
		routes: []route{
			{name: "forget_unknown", method: http.MethodPost, prefix: "/admin/contracts/forget-unknown", rps: rate.Every(time.Minute), burst: 1},
			{name: "verify", method: http.MethodPost, prefix: "/admin/verify", rps: rate.Limit(rps), burst: burst},
			{name: "admin", prefix: "/admin/", rps: 1, burst: 5},
		},
		logger:   logger.With("component", "admin_ratelimit"),
		limiters: make(map[string]*clientLimiter),
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *RateLimitMiddleware) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimitMiddleware) evictStale() {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt, ok := rl.match(r.Method, r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := extractClientIP(r)
		if !rl.limiterFor(rt, clientIP).Allow() {
			metrics.AdminRateLimited.WithLabelValues(rt.name).Inc()
			w.Header().Set("Retry-After", rt.retryAfter())
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			rl.logger.Warn("admin API rate limit exceeded",
				"route", rt.name,
				"path", r.URL.Path,
				"client_ip", clientIP,
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote host.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimitMiddleware) match(method, path string) (route, bool) {
	for _, rt := range rl.routes {
		if rt.method != "" && rt.method != method {
			continue
		}
		if strings.HasPrefix(path, rt.prefix) {
			return rt, true
		}
	}
	return route{}, false
}

func (rl *RateLimitMiddleware) limiterFor(rt route, clientIP string) *rate.Limiter {
	key := rt.name + "|" + clientIP
	now := rl.nowFunc()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(rt.rps, rt.burst)
	rl.limiters[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	return limiter
}
