package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/internal/service/extraction"
)

type HealthHandler struct {
	extractor extraction.Extractor
}

func NewHealthHandler(extractor extraction.Extractor) *HealthHandler {
	return &HealthHandler{extractor: extractor}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"pipeline": h.extractor.State(),
	})
}
