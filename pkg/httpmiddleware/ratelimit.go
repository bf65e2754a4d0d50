package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding-window limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// slidingWindow approximates a rolling count from the current and previous
// fixed windows.
type slidingWindow struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max    int
	window time.Duration
	key    func(*http.Request) string

	mu      sync.Mutex
	clients map[string]*slidingWindow
}

func newLimiter(cfg RateLimitConfig) *limiter {
	key := cfg.KeyFunc
	if key == nil {
		key = ClientIP
	}
	return &limiter{
		max:     cfg.Max,
		window:  cfg.Window,
		key:     key,
		clients: make(map[string]*slidingWindow),
	}
}

// take consumes one request for key if allowed.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw, found := l.clients[key]
	if !found {
		sw = &slidingWindow{start: now.Truncate(l.window)}
		l.clients[key] = sw
	}
	if elapsed := now.Sub(sw.start); elapsed >= l.window {
		if elapsed >= 2*l.window {
			sw.prev = 0
		} else {
			sw.prev = sw.curr
		}
		sw.curr = 0
		sw.start = now.Truncate(l.window)
	}

	weight := 1 - float64(now.Sub(sw.start))/float64(l.window)
	count := sw.prev*math.Max(weight, 0) + sw.curr
	reset = sw.start.Add(l.window)
	if count >= float64(l.max) {
		return 0, reset, false
	}
	sw.curr++
	return max(l.max-int(math.Ceil(count+1)), 0), reset, true
}

// evict drops clients idle for two windows.
func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, sw := range l.clients {
		if now.Sub(sw.start) >= 2*l.window {
			delete(l.clients, k)
		}
	}
}

// RateLimit limits requests per client key. Rejected requests get 429 with
// Retry-After; all responses carry X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is RateLimit with a goroutine that evicts idle
// clients until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		t := time.NewTicker(2 * l.window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.evict(now)
			}
		}
	}()
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		remaining, reset, ok := l.take(l.key(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		if !ok {
			wait := max(reset.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
