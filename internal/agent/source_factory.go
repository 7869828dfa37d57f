package agent

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/feichai0017/content-analyzer/internal/agent/document"
	"github.com/feichai0017/content-analyzer/internal/agent/document/image"
	"github.com/feichai0017/content-analyzer/internal/agent/document/pdf"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// ErrUnsupportedFormat is returned for inputs that are neither PDF nor image
var ErrUnsupportedFormat = errors.New("unsupported format")

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Classify maps a MIME type, filename or bare extension to a SourceKind
func Classify(hint string) models.SourceKind {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if mediaType, _, ok := strings.Cut(hint, ";"); ok {
		hint = strings.TrimSpace(mediaType)
	}
	if hint == "" {
		return models.Unsupported
	}

	if hint == "application/pdf" || strings.HasSuffix(hint, ".pdf") {
		return models.PDF
	}
	if strings.HasPrefix(hint, "image/") {
		return models.Image
	}
	if imageExtensions[filepath.Ext(hint)] {
		return models.Image
	}
	return models.Unsupported
}

// ClassifyUpload decides the kind of an uploaded file. The declared content
// type wins; the filename is consulted when the type says nothing useful.
func ClassifyUpload(filename, contentType string) models.SourceKind {
	if kind := Classify(contentType); kind != models.Unsupported {
		return kind
	}
	return Classify(filename)
}

// SourceFactory resolves the PageSource for a SourceKind
type SourceFactory struct {
	sources map[models.SourceKind]document.PageSource
	logger  logger.Logger
}

// NewSourceFactory registers the PDF and image sources
func NewSourceFactory(log logger.Logger) *SourceFactory {
	f := &SourceFactory{
		sources: make(map[models.SourceKind]document.PageSource),
		logger:  log,
	}
	f.Register(pdf.NewSource(log))
	f.Register(image.NewSource(log))
	return f
}

// Register adds or replaces the source for src.Kind()
func (f *SourceFactory) Register(src document.PageSource) {
	f.sources[src.Kind()] = src
}

func (f *SourceFactory) GetSource(kind models.SourceKind) (document.PageSource, error) {
	src, ok := f.sources[kind]
	if !ok {
		f.logger.Warn("No source registered", logger.String("kind", string(kind)))
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
	return src, nil
}

// SourceFor classifies hint and returns the matching source
func (f *SourceFactory) SourceFor(hint string) (document.PageSource, error) {
	return f.GetSource(Classify(hint))
}
