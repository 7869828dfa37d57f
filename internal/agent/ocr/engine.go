package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// DefaultLanguage is the Tesseract language code used when none is configured
const DefaultLanguage = "eng"

// Engine recognizes text in a bitmap. Callers invoke it once per page and
// never concurrently; an image without text yields "" and no error.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, language string) (string, error)
}

// NewEngine builds the engine selected by cfg.OCR.Engine
func NewEngine(ctx context.Context, cfg *config.AppConfig, log logger.Logger) (Engine, error) {
	switch cfg.OCR.Engine {
	case "", "tesseract":
		return NewTesseract(cfg.OCR.PageSegMode, log), nil
	case "textract":
		return NewTextract(ctx, cfg.Textract, log)
	default:
		return nil, fmt.Errorf("unknown ocr engine: %s", cfg.OCR.Engine)
	}
}
