package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/metrics"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiters(idle time.Duration) (*clientLimiters, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newClientLimiters(rate.Limit(10), 10, idle)
	l.now = clock.now
	l.lastSweep = clock.t
	return l, clock
}

func TestClientLimiters_EvictsIdleClients(t *testing.T) {
	l, clock := newTestLimiters(time.Minute)

	l.get("10.0.0.1")
	l.get("10.0.0.2")
	assert.Equal(t, 2, l.len())

	clock.advance(30 * time.Second)
	l.get("10.0.0.1")

	clock.advance(45 * time.Second)
	l.get("10.0.0.3")

	// .2 has been idle for 75s and is gone; .1 was seen 45s ago and stays.
	assert.Equal(t, 2, l.len())
	_, exists := l.limiters["10.0.0.2"]
	assert.False(t, exists)
	_, exists = l.limiters["10.0.0.1"]
	assert.True(t, exists)
}

func TestClientLimiters_KeepsBucketWhileActive(t *testing.T) {
	l, clock := newTestLimiters(time.Minute)

	first := l.get("10.0.0.1")
	clock.advance(59 * time.Second)
	assert.Same(t, first, l.get("10.0.0.1"))
}

func TestRateLimiter_ManyClientsStayBounded(t *testing.T) {
	l, clock := newTestLimiters(time.Minute)

	router := gin.New()
	router.Use(rateLimiter(config.RateLimitConfig{}, l))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = ip + ":4321"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 1000; i++ {
		require.Equal(t, http.StatusOK, send("10.1."+strconv.Itoa(i/250)+"."+strconv.Itoa(i%250)))
	}
	assert.Equal(t, 1000, l.len())

	clock.advance(2 * time.Minute)
	assert.Equal(t, http.StatusOK, send("10.9.9.9"))
	assert.Equal(t, 1, l.len())
}

func TestMetrics_TracksInFlight(t *testing.T) {
	m := metrics.New()
	entered := make(chan struct{})
	release := make(chan struct{})

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	}()

	<-entered
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsInFlight))

	close(release)
	<-done
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/slow", "200")))
}
