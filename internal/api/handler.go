package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autoreply/embeddings/internal/service"
)

// Handler adapts the service operations to gin.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

func (h *Handler) Embed(c *gin.Context) {
	var req service.EmbedRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.svc.Embed(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Similarity(c *gin.Context) {
	var req service.SimilarityRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.svc.Similarity(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) BatchSimilarity(c *gin.Context) {
	var req service.BatchSimilarityRequest
	if !bind(c, &req) {
		return
	}

	resp, err := h.svc.BatchSimilarity(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bind decodes the JSON body into req. An empty body is treated as {} so
// that missing fields produce the operation's own validation message.
func bind(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, service.BadRequest("Invalid JSON payload: %v", err))
		return false
	}
	return true
}
