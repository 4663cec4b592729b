package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterTTL = time.Hour

// AuthRateLimiter throttles credential submissions per client address.
type AuthRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
	limit       rate.Limit
	burst       int
	logger      *slog.Logger
}

func NewAuthRateLimiter(perSecond float64, burst int, logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		logger:      logger,
	}
}

func (l *AuthRateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > limiterTTL {
		l.limiters = make(map[string]*rate.Limiter)
		l.lastCleanup = time.Now()
	}
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// Middleware applies the limit to POST requests under /api/v1/auth/.
func (l *AuthRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/api/v1/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !l.limiter(ip).Allow() {
			l.logger.WarnContext(r.Context(), "auth rate limit exceeded",
				"ip", ip,
				"request_id", GetRequestID(r),
			)
			writeError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many attempts. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
