package extraction

import (
	"context"

	"github.com/feichai0017/content-analyzer/internal/agent/document"
	"github.com/feichai0017/content-analyzer/internal/models"
)

// Extractor turns an uploaded document into plain text
type Extractor interface {
	Extract(ctx context.Context, data []byte, hint string, observer Observer) (*models.ExtractionResult, error)
	State() models.PipelineState
}

// SourceResolver looks up the PageSource for a classified input
type SourceResolver interface {
	GetSource(kind models.SourceKind) (document.PageSource, error)
}
