package document

import (
	"context"
	"image"

	"github.com/feichai0017/content-analyzer/internal/models"
)

// PageSource opens raw bytes of one kind of document
type PageSource interface {
	// Kind reports which SourceKind this source handles
	Kind() models.SourceKind

	// Open parses data and returns a document with at least one page
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is an opened source. It is owned by a single extraction run.
type Document interface {
	// PageCount is always >= 1
	PageCount() int

	// Page returns the handle for a 1-based page index
	Page(ctx context.Context, index int) (Page, error)

	// Close releases parser and renderer resources
	Close() error
}

// Page is a transient handle; it must not be used after the next Page call.
type Page interface {
	Index() int

	// NativeText returns the embedded text layer. ok is false when the page
	// has no text layer at all (raw images, empty content streams).
	NativeText(ctx context.Context) (text string, ok bool, err error)

	// Render rasterizes the page at the given scale (1 = 72 DPI)
	Render(ctx context.Context, scale float64) (image.Image, error)
}
