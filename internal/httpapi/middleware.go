package httpapi

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// requireToken checks the bearer ADMIN_TOKEN. An empty token disables the
// check, which App warns about at startup.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(s.opts.AdminToken)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitAI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.aiLimiter.Allow(clientKey(r)) {
			writeError(w, r, http.StatusTooManyRequests, "too many AI requests, try again later", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the client IP. RealIP leaves a bare address without a port, so
// anything SplitHostPort rejects is used as is.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// keyedLimiter tracks one token bucket per client.
type keyedLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	lastAccess map[string]time.Time
	rate       rate.Limit
	burst      int
}

// newKeyedLimiter allows perMinute requests per client. Zero or less
// disables limiting.
func newKeyedLimiter(perMinute int) *keyedLimiter {
	if perMinute <= 0 {
		return &keyedLimiter{rate: rate.Inf}
	}
	return &keyedLimiter{
		limiters:   make(map[string]*rate.Limiter),
		lastAccess: make(map[string]time.Time),
		rate:       rate.Limit(float64(perMinute) / 60.0),
		burst:      max(1, perMinute/4),
	}
}

func (k *keyedLimiter) Allow(key string) bool {
	if k.rate == rate.Inf {
		return true
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	limiter, exists := k.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(k.rate, k.burst)
		k.limiters[key] = limiter
	}
	k.lastAccess[key] = time.Now()
	return limiter.Allow()
}

// Evict removes limiters that haven't been accessed within maxAge.
func (k *keyedLimiter) Evict(maxAge time.Duration) {
	if k.rate == rate.Inf {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	for key, last := range k.lastAccess {
		if last.Before(cutoff) {
			delete(k.limiters, key)
			delete(k.lastAccess, key)
		}
	}
}
