package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// Tesseract runs recognition through libtesseract. A single client is kept
// for the lifetime of the engine.
type Tesseract struct {
	mu          sync.Mutex
	client      *gosseract.Client
	pageSegMode gosseract.PageSegMode
	language    string
	logger      logger.Logger
}

func NewTesseract(pageSegMode int, log logger.Logger) *Tesseract {
	psm := gosseract.PageSegMode(pageSegMode)
	if pageSegMode <= 0 {
		psm = gosseract.PSM_AUTO
	}
	return &Tesseract{
		client:      gosseract.NewClient(),
		pageSegMode: psm,
		logger:      log.Named("tesseract"),
	}
}

func (t *Tesseract) Name() string {
	return "tesseract"
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("input image is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if language == "" {
		language = DefaultLanguage
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.language != language {
		if err := t.client.SetLanguage(language); err != nil {
			return "", fmt.Errorf("failed to set language: %w", err)
		}
		t.language = language
	}
	if err := t.client.SetPageSegMode(t.pageSegMode); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}

	bounds := img.Bounds()
	t.logger.Debug("Recognized image",
		logger.Int("width", bounds.Dx()),
		logger.Int("height", bounds.Dy()),
		logger.Int("chars", len(text)),
	)
	return text, nil
}

// Close releases the underlying Tesseract handle
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
