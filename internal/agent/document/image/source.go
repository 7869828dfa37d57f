package image

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/feichai0017/content-analyzer/internal/agent/document"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// Source treats a raster image as a one-page document with no text layer
type Source struct {
	logger logger.Logger
}

func NewSource(log logger.Logger) *Source {
	return &Source{logger: log.Named("image")}
}

func (s *Source) Kind() models.SourceKind {
	return models.Image
}

func (s *Source) Open(ctx context.Context, data []byte) (document.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image content")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	s.logger.Debug("Decoded image",
		logger.String("format", format),
		logger.Int("width", bounds.Dx()),
		logger.Int("height", bounds.Dy()),
	)

	return &Document{img: img, format: format}, nil
}

// Document is a decoded image
type Document struct {
	img    image.Image
	format string
}

func (d *Document) PageCount() int {
	return 1
}

// Format is the decoder name reported by image.DecodeConfig
func (d *Document) Format() string {
	return d.format
}

func (d *Document) Page(ctx context.Context, index int) (document.Page, error) {
	if index != 1 {
		return nil, fmt.Errorf("page %d out of range [1, 1]", index)
	}
	return &Page{img: d.img}, nil
}

func (d *Document) Close() error {
	d.img = nil
	return nil
}

// Page is the single synthetic page of an image document
type Page struct {
	img image.Image
}

func (p *Page) Index() int {
	return 1
}

func (p *Page) NativeText(ctx context.Context) (string, bool, error) {
	return "", false, nil
}

// Render returns the bitmap at its natural size; scale does not apply to
// raster input.
func (p *Page) Render(ctx context.Context, scale float64) (image.Image, error) {
	if p.img == nil {
		return nil, fmt.Errorf("image document already closed")
	}
	return p.img, nil
}
