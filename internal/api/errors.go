package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"autoreply/embeddings/internal/log"
	"autoreply/embeddings/internal/service"
)

// statusFor maps a service error kind to an HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message} with the status matching err.
// Unrecognized errors are treated as internal.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = service.Internal(err)
	}

	status := statusFor(svcErr.Kind)
	if status >= http.StatusInternalServerError {
		log.ErrorLogger.Printf("request %s failed: %v", requestIDFrom(c), err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": svcErr.Message})
}
