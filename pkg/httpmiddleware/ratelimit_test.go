package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveFrom(h http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := serveFrom(h, "192.168.1.1:1000", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := serveFrom(h, "192.168.1.1:1000", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"message":"rate limit exceeded"}}`, w.Body.String())
}

func TestRateLimit_RemainingCountsDown(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	var got []string
	for range 3 {
		got = append(got, serveFrom(h, "10.1.1.1:1", nil).Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, []string{"2", "1", "0"}, got)
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	tests := []struct {
		name   string
		cfg    RateLimitConfig
		first  func() (string, http.Header)
		second func() (string, http.Header)
		same   bool
	}{
		{
			name:   "different IPs",
			cfg:    RateLimitConfig{Max: 1, Window: time.Minute},
			first:  func() (string, http.Header) { return "10.0.0.1:1234", nil },
			second: func() (string, http.Header) { return "10.0.0.2:1234", nil },
		},
		{
			name:   "same IP different port",
			cfg:    RateLimitConfig{Max: 1, Window: time.Minute},
			first:  func() (string, http.Header) { return "10.0.0.1:1234", nil },
			second: func() (string, http.Header) { return "10.0.0.1:5678", nil },
			same:   true,
		},
		{
			name: "forwarded for first hop",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func() (string, http.Header) {
				return "192.168.1.1:1", http.Header{"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"}}
			},
			second: func() (string, http.Header) {
				return "192.168.1.2:1", http.Header{"X-Forwarded-For": {"203.0.113.50"}}
			},
			same: true,
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: func(r *http.Request) string {
				return r.Header.Get("Api_key")
			}},
			first: func() (string, http.Header) {
				return "10.0.0.1:1", http.Header{"Api_key": {"a"}}
			},
			second: func() (string, http.Header) {
				return "10.0.0.1:1", http.Header{"Api_key": {"b"}}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.cfg)(okHandler())

			addr, hdr := tt.first()
			require.Equal(t, http.StatusOK, serveFrom(h, addr, hdr).Code)

			addr, hdr = tt.second()
			want := http.StatusOK
			if tt.same {
				want = http.StatusTooManyRequests
			}
			assert.Equal(t, want, serveFrom(h, addr, hdr).Code)
		})
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	_, _, ok := l.take("k", start)
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(2*time.Second))
	require.False(t, ok)

	// Half into the next window the previous count weighs 1.
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.True(t, ok)

	// Two windows later everything is forgotten.
	_, _, ok = l.take("k", start.Add(5*time.Minute))
	assert.True(t, ok)
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	l.take("old", now)
	l.take("fresh", now.Add(2*time.Minute))

	l.evict(now.Add(2*time.Minute + time.Second))

	assert.NotContains(t, l.clients, "old")
	assert.Contains(t, l.clients, "fresh")
}
