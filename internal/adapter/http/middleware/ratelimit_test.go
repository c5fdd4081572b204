package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClient(t *testing.T) {
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "hits"})
	rl := NewRateLimiter(0.001, 1, hits)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("1.2.3.4:1000"))
	assert.Equal(t, http.StatusTooManyRequests, do("1.2.3.4:2000"), "port does not change the client")
	assert.Equal(t, http.StatusOK, do("5.6.7.8:1000"))
	assert.Equal(t, float64(1), testutil.ToFloat64(hits))
	assert.Equal(t, 2, rl.size())

	rl.CleanupLimiters()
	assert.Equal(t, 0, rl.size())
	assert.Equal(t, http.StatusOK, do("1.2.3.4:1000"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.RemoteAddr = "10.0.0.2"
	assert.Equal(t, "10.0.0.2", clientIP(req))
}
