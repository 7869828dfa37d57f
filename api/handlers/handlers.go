package handlers

import (
	"github.com/feichai0017/content-analyzer/internal/service/analysis"
	"github.com/feichai0017/content-analyzer/internal/service/extraction"
	"github.com/feichai0017/content-analyzer/internal/utils/validator"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Analysis *AnalysisHandler
	Health   *HealthHandler
}

func NewHandlers(
	extractor extraction.Extractor,
	documentValidator *validator.DocumentValidator,
	sink ProgressSink,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(extractor, documentValidator, sink, log),
		Analysis: NewAnalysisHandler(analysis.NewAnalyzer(), log),
		Health:   NewHealthHandler(extractor),
	}
}
