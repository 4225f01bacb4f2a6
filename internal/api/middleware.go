package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/log"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// requestIDFrom returns the ID stored by RequestID, or "" outside it.
func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger middleware logs HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.InfoLogger.Printf("[API] %s | %3d | %12v | %s | %s | %s",
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
			c.Request.Method,
			path,
			requestIDFrom(c),
		)

		if len(c.Errors) > 0 {
			log.ErrorLogger.Printf("[API ERROR] %s | %s", requestIDFrom(c), c.Errors.String())
		}
	}
}

// RequestObserver records finished requests. *metrics.Metrics implements it.
type RequestObserver interface {
	// InFlight adjusts the number of requests being served by delta.
	InFlight(delta int)
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records every request under its route template rather than its raw path.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		observer.InFlight(1)
		defer observer.InFlight(-1)

		c.Next()
		observer.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// CORS adds CORS headers to responses and answers preflight requests with 204.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	methods := "GET, POST, OPTIONS"
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
	}
	allowHeaders := strings.Join(headers, ", ")
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 86400 // 24 hours
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := ""
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				allowed = "*"
				break
			}
			if o == origin {
				allowed = origin
				break
			}
		}

		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Expose-Headers", RequestIDHeader)
			c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))
			if allowed != "*" {
				c.Header("Vary", "Origin")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientLimiters hands out one token bucket per client IP. Buckets of
// clients idle for longer than idle are dropped by a sweep that runs at
// most once per idle period.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(limit rate.Limit, burst int, idle time.Duration) *clientLimiters {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &clientLimiters{
		limit:     limit,
		burst:     burst,
		idle:      idle,
		now:       time.Now,
		lastSweep: time.Now(),
		limiters:  make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep deletes idle buckets. Callers hold mu.
func (l *clientLimiters) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idle {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimiter middleware implements rate limiting per client IP.
func RateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	return rateLimiter(cfg, nil)
}

func rateLimiter(cfg config.RateLimitConfig, limiters *clientLimiters) gin.HandlerFunc {
	if limiters == nil {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		limiters = newClientLimiters(rate.Limit(cfg.RequestsPerSecond), burst, cfg.IdleTimeout)
	}

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please retry later."})
			return
		}
		c.Next()
	}
}
