package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/internal/service/analysis"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

type AnalysisHandler struct {
	analyzer *analysis.Analyzer
	logger   logger.Logger
}

type AnalyzeRequest struct {
	Text string `json:"text"`
}

func NewAnalysisHandler(analyzer *analysis.Analyzer, log logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, logger: log}
}

// Analyze handles POST /analysis for text edited after extraction
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, h.analyzer.Analyze(req.Text))
}
