package http

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/example/timeline-engine/internal/logging"
)

// Authenticator checks basic credentials.
type Authenticator interface {
	Check(username, password string) bool
}

// RequireBasicAuth rejects requests without valid basic credentials.
func RequireBasicAuth(authn Authenticator, realm string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || !authn.Check(username, password) {
				w.Header().Set("WWW-Authenticate", challenge)
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "authentication required"})
				return
			}

			ctx := ContextWithUsername(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request-scoped logger to the context and logs
// the start and end of each request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = logging.Default(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(ctx, "request completed",
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rate       rate.Limit
	burst      int
	idle       time.Duration
	maxEntries int
	now        func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per
// client. Buckets idle for longer than idle are dropped.
func NewRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &RateLimiter{
		rate:       rate.Limit(rps),
		burst:      burst,
		idle:       idle,
		maxEntries: 10000,
		now:        time.Now,
		limiters:   make(map[string]*limiterEntry),
	}
}

// Allow reports whether a request from ip may proceed.
func (l *RateLimiter) Allow(ip string) bool {
	return l.limiterFor(ip).AllowN(l.now(), 1)
}

// Middleware rejects requests over the limit with 429. Client addresses come
// from RemoteAddr, which chi's RealIP middleware rewrites behind proxies.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r.RemoteAddr)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		l.sweepLocked(now)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= l.maxEntries {
			l.evictOldestLocked()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.idle)
	for ip, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) evictOldestLocked() {
	var oldestIP string
	var oldest time.Time
	for ip, entry := range l.limiters {
		if oldestIP == "" || entry.lastAccess.Before(oldest) {
			oldestIP, oldest = ip, entry.lastAccess
		}
	}
	if oldestIP != "" {
		delete(l.limiters, oldestIP)
	}
}

func clientIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
