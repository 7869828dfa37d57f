package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/content-analyzer/internal/agent/document"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// pointsPerInch is the PDF user-space resolution; scale 1 renders at 72 DPI.
const pointsPerInch = 72.0

// Source opens PDF documents. Text comes from the embedded text layer via
// ledongthuc/pdf; rasterization goes through MuPDF and is only set up when a
// page actually needs OCR.
type Source struct {
	logger logger.Logger
}

func NewSource(log logger.Logger) *Source {
	return &Source{logger: log.Named("pdf")}
}

func (s *Source) Kind() models.SourceKind {
	return models.PDF
}

func (s *Source) Open(ctx context.Context, data []byte) (document.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf content")
	}

	var reader *pdf.Reader
	err := safely(func() error {
		var err error
		reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var numPages int
	if err := safely(func() error {
		numPages = reader.NumPage()
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read page tree: %w", err)
	}
	if numPages < 1 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	hash := sha256.Sum256(data)
	s.logger.Debug("Opened pdf",
		logger.Int("pages", numPages),
		logger.Int("size", len(data)),
		logger.String("hash", hex.EncodeToString(hash[:8])),
	)

	return &Document{
		data:     data,
		reader:   reader,
		numPages: numPages,
		logger:   s.logger,
	}, nil
}

// Document is an opened PDF
type Document struct {
	data     []byte
	reader   *pdf.Reader
	numPages int
	logger   logger.Logger

	rasterOnce sync.Once
	raster     *fitz.Document
	rasterErr  error
}

func (d *Document) PageCount() int {
	return d.numPages
}

func (d *Document) Page(ctx context.Context, index int) (document.Page, error) {
	if index < 1 || index > d.numPages {
		return nil, fmt.Errorf("page %d out of range [1, %d]", index, d.numPages)
	}

	var p pdf.Page
	if err := safely(func() error {
		p = d.reader.Page(index)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load page %d: %w", index, err)
	}

	return &Page{doc: d, index: index, page: p}, nil
}

func (d *Document) Close() error {
	if d.raster != nil {
		return d.raster.Close()
	}
	return nil
}

func (d *Document) rasterizer() (*fitz.Document, error) {
	d.rasterOnce.Do(func() {
		d.raster, d.rasterErr = fitz.NewFromMemory(d.data)
		if d.rasterErr == nil {
			d.logger.Debug("Opened renderer", logger.Int("pages", d.raster.NumPage()))
		}
	})
	return d.raster, d.rasterErr
}

// Page is a single PDF page handle
type Page struct {
	doc   *Document
	index int
	page  pdf.Page
}

func (p *Page) Index() int {
	return p.index
}

func (p *Page) NativeText(ctx context.Context) (string, bool, error) {
	if p.page.V.IsNull() || p.page.V.Key("Contents").IsNull() {
		return "", false, nil
	}

	var text string
	err := safely(func() error {
		var err error
		text, err = p.page.GetPlainText(nil)
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get text from page %d: %w", p.index, err)
	}
	return text, true, nil
}

func (p *Page) Render(ctx context.Context, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid render scale %v", scale)
	}
	raster, err := p.doc.rasterizer()
	if err != nil {
		return nil, fmt.Errorf("failed to open renderer: %w", err)
	}

	// MuPDF pages are zero-based
	img, err := raster.ImageDPI(p.index-1, pointsPerInch*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", p.index, err)
	}
	return img, nil
}

// safely converts parser panics on malformed input into errors
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return fn()
}
