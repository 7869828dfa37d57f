package extraction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/internal/agent"
	"github.com/feichai0017/content-analyzer/internal/agent/document"
	imgproc "github.com/feichai0017/content-analyzer/internal/agent/document/image"
	"github.com/feichai0017/content-analyzer/internal/agent/ocr"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

const (
	// MinNativeTextLength is the trimmed rune count a text layer must exceed
	// before OCR is skipped for a page.
	MinNativeTextLength = 30

	// DefaultRenderScale renders at 144 DPI
	DefaultRenderScale = 2.0
)

const (
	statusStarting   = "Starting extraction..."
	statusLoadingPDF = "Loading PDF..."
	statusImageOCR   = "Image uploaded — running OCR..."
	statusFinished   = "Extraction finished"
	statusFailed     = "Error during extraction"
)

func statusProcessingPage(i, n int) string {
	return fmt.Sprintf("Processing page %d / %d...", i, n)
}

func statusPageOCR(i int) string {
	return fmt.Sprintf("Page %d: running OCR (this can take some seconds)...", i)
}

type Config struct {
	RenderScale         float64
	MinNativeTextLength int
	Language            string
	Preprocessors       []imgproc.ImagePreprocessor
}

func DefaultConfig() Config {
	return Config{
		RenderScale:         DefaultRenderScale,
		MinNativeTextLength: MinNativeTextLength,
		Language:            ocr.DefaultLanguage,
	}
}

// ConfigFrom maps application settings onto a pipeline configuration
func ConfigFrom(app *config.AppConfig) (Config, error) {
	chain, err := imgproc.ParsePreprocessors(app.Extraction.Preprocessors)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		RenderScale:         app.Extraction.RenderScale,
		MinNativeTextLength: app.Extraction.MinNativeTextLength,
		Language:            app.OCR.Language,
		Preprocessors:       chain,
	}
	if cfg.RenderScale <= 0 {
		cfg.RenderScale = DefaultRenderScale
	}
	if cfg.Language == "" {
		cfg.Language = ocr.DefaultLanguage
	}
	return cfg, nil
}

// Pipeline extracts text page by page, falling back to OCR for pages without
// a usable text layer. Only one run may be in flight; concurrent callers get
// ErrRunInProgress.
type Pipeline struct {
	sources SourceResolver
	engine  ocr.Engine
	config  Config
	logger  logger.Logger

	inFlight *semaphore.Weighted

	mu    sync.RWMutex
	state models.PipelineState
}

func NewPipeline(sources SourceResolver, engine ocr.Engine, cfg Config, log logger.Logger) *Pipeline {
	return &Pipeline{
		sources:  sources,
		engine:   engine,
		config:   cfg,
		logger:   log.Named("extraction"),
		inFlight: semaphore.NewWeighted(1),
		state:    models.StateIdle,
	}
}

func (p *Pipeline) State() models.PipelineState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(s models.PipelineState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Extract runs one extraction. hint is a MIME type or filename used for
// classification. observer may be nil.
func (p *Pipeline) Extract(ctx context.Context, data []byte, hint string, observer Observer) (*models.ExtractionResult, error) {
	kind := agent.Classify(hint)
	if kind == models.Unsupported {
		return nil, unsupported(fmt.Errorf("%w: %q", agent.ErrUnsupportedFormat, hint))
	}

	if !p.inFlight.TryAcquire(1) {
		return nil, ErrRunInProgress
	}
	defer p.inFlight.Release(1)

	src, err := p.sources.GetSource(kind)
	if err != nil {
		return nil, unsupported(err)
	}

	r := &run{
		id:       uuid.NewString(),
		kind:     kind,
		observer: observer,
		start:    time.Now(),
	}
	r.logger = p.logger.With(logger.String("runId", r.id), logger.String("kind", string(kind)))
	r.logger.Info("Starting extraction", logger.Int("size", len(data)))

	p.setState(models.StateOpeningDocument)
	r.emit(0, 0, 0, statusStarting)

	result, err := p.extract(ctx, r, src, data)
	if err != nil {
		p.setState(models.StateFailed)
		r.emit(r.last.CurrentPage, r.last.TotalPages, r.last.PercentComplete, statusFailed)
		var ee *ExtractionError
		if errors.As(err, &ee) {
			r.logger.Error("Extraction failed",
				logger.String("stage", string(ee.Stage)),
				logger.Int("page", ee.Page),
				logger.Error(ee.Err),
			)
		}
		return nil, err
	}

	p.setState(models.StateDone)
	r.emit(result.PageCount, result.PageCount, 100, statusFinished)
	r.logger.Info("Extraction finished",
		logger.Int("pages", result.PageCount),
		logger.Int("nativePages", result.NativePages()),
		logger.Int("ocrPages", result.OcrPages()),
		logger.Int("chars", len(result.Text)),
		logger.Duration("duration", result.Duration),
	)
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, r *run, src document.PageSource, data []byte) (*models.ExtractionResult, error) {
	if r.kind == models.PDF {
		r.emit(0, 0, 0, statusLoadingPDF)
	} else {
		r.emit(0, 1, 0, statusImageOCR)
	}

	doc, err := src.Open(ctx, data)
	if err != nil {
		return nil, engineFailure(models.StageOpen, 0, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			r.logger.Warn("Failed to close document", logger.Error(err))
		}
	}()

	total := doc.PageCount()
	if total < 1 {
		return nil, engineFailure(models.StageOpen, 0, fmt.Errorf("document has no pages"))
	}
	if r.kind == models.PDF {
		r.emit(0, total, 0, statusLoadingPDF)
	}

	pages := make([]models.PageResult, 0, total)
	blocks := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		percent := int(math.Round(float64(i-1) / float64(total) * 100))
		if r.kind == models.PDF {
			r.emit(i, total, percent, statusProcessingPage(i, total))
		}
		p.setState(models.StateProcessingPage)

		page, err := doc.Page(ctx, i)
		if err != nil {
			return nil, engineFailure(models.StageNativeText, i, err)
		}

		pr, err := p.processPage(ctx, r, page, total, percent)
		if err != nil {
			return nil, err
		}
		pages = append(pages, pr)
		blocks = append(blocks, pr.Text)
	}

	return &models.ExtractionResult{
		RunID:      r.id,
		SourceKind: r.kind,
		PageCount:  total,
		Text:       strings.TrimSpace(strings.Join(blocks, "\n\n")),
		Pages:      pages,
		Duration:   time.Since(r.start),
	}, nil
}

func (p *Pipeline) processPage(ctx context.Context, r *run, page document.Page, total, percent int) (models.PageResult, error) {
	i := page.Index()

	native, ok, err := page.NativeText(ctx)
	if err != nil {
		return models.PageResult{}, engineFailure(models.StageNativeText, i, err)
	}
	if ok && p.acceptNative(native) {
		text := strings.TrimSpace(native)
		r.logger.Debug("Using native text",
			logger.Int("page", i),
			logger.Int("chars", utf8.RuneCountInString(text)),
		)
		return models.PageResult{Index: i, Decision: models.DecisionNativeText, Text: text}, nil
	}

	if r.kind == models.PDF {
		r.emit(i, total, percent, statusPageOCR(i))
	}
	p.setState(models.StateOcrRunning)

	img, err := page.Render(ctx, p.config.RenderScale)
	if err != nil {
		return models.PageResult{}, engineFailure(models.StageRender, i, err)
	}
	if len(p.config.Preprocessors) > 0 {
		img, err = imgproc.ApplyPreprocessing(img, p.config.Preprocessors)
		if err != nil {
			return models.PageResult{}, engineFailure(models.StageRender, i, err)
		}
	}

	text, err := p.engine.Recognize(ctx, img, p.config.Language)
	if err != nil {
		return models.PageResult{}, engineFailure(models.StageOcr, i, err)
	}
	text = strings.TrimSpace(text)
	r.logger.Debug("Recognized page",
		logger.Int("page", i),
		logger.String("engine", p.engine.Name()),
		logger.Int("nativeChars", utf8.RuneCountInString(strings.TrimSpace(native))),
		logger.Int("chars", utf8.RuneCountInString(text)),
	)
	return models.PageResult{Index: i, Decision: models.DecisionOcrRequired, Text: text}, nil
}

func (p *Pipeline) acceptNative(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > p.config.MinNativeTextLength
}

// run carries the per-extraction state that must not outlive one call
type run struct {
	id       string
	kind     models.SourceKind
	observer Observer
	start    time.Time
	last     models.ProgressState
	logger   logger.Logger
}

func (r *run) emit(page, total, percent int, status string) {
	r.last = models.ProgressState{
		RunID:           r.id,
		CurrentPage:     page,
		TotalPages:      total,
		PercentComplete: percent,
		StatusMessage:   status,
	}
	if r.observer != nil {
		r.observer(r.last)
	}
}
