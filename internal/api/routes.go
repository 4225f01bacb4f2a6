// Package api exposes the embedding service over HTTP with gin.
package api

import (
	"github.com/gin-gonic/gin"

	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/metrics"
	"autoreply/embeddings/internal/service"
)

// NewRouter builds the gin engine with all middleware and routes.
// m may be nil, which disables request metrics and the metrics endpoint.
func NewRouter(cfg *config.Config, svc *service.Service, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(CORS(cfg.CORS))
	if m != nil {
		router.Use(Metrics(m))
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		router.Use(RateLimiter(cfg.RateLimit))
	}

	h := NewHandler(svc)
	router.GET("/health", h.Health)
	router.POST("/embed", h.Embed)
	router.POST("/similarity", h.Similarity)
	router.POST("/batch-similarity", h.BatchSimilarity)

	if m != nil && cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	return router
}
