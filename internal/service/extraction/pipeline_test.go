package extraction

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/content-analyzer/config"
	"github.com/feichai0017/content-analyzer/internal/agent/document"
	imgproc "github.com/feichai0017/content-analyzer/internal/agent/document/image"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

type fakePage struct {
	index     int
	native    string
	hasNative bool
	nativeErr error
	renderErr error
	rendered  *int
}

func (p *fakePage) Index() int { return p.index }

func (p *fakePage) NativeText(ctx context.Context) (string, bool, error) {
	return p.native, p.hasNative, p.nativeErr
}

func (p *fakePage) Render(ctx context.Context, scale float64) (image.Image, error) {
	if p.renderErr != nil {
		return nil, p.renderErr
	}
	*p.rendered++
	// encode the page index in the bitmap width so the engine can tell pages apart
	return image.NewGray(image.Rect(0, 0, p.index, 1)), nil
}

type fakeDoc struct {
	pages  []*fakePage
	closed bool
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) Page(ctx context.Context, index int) (document.Page, error) {
	if index < 1 || index > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	return d.pages[index-1], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeSource struct {
	kind    models.SourceKind
	doc     *fakeDoc
	openErr error
	block   chan struct{}
	opened  chan struct{}
}

func (s *fakeSource) Kind() models.SourceKind { return s.kind }

func (s *fakeSource) Open(ctx context.Context, data []byte) (document.Document, error) {
	if s.opened != nil {
		close(s.opened)
	}
	if s.block != nil {
		<-s.block
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.doc, nil
}

type fakeResolver struct {
	sources map[models.SourceKind]document.PageSource
}

func (r fakeResolver) GetSource(kind models.SourceKind) (document.PageSource, error) {
	src, ok := r.sources[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
	return src, nil
}

// fakeEngine answers "ocr page N" unless a failure is configured for page N
type fakeEngine struct {
	mu       sync.Mutex
	calls    int
	failPage int
	text     map[int]string
	langs    []string
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.langs = append(e.langs, language)

	page := img.Bounds().Dx()
	if page == e.failPage {
		return "", errors.New("tesseract crashed")
	}
	if t, ok := e.text[page]; ok {
		return t, nil
	}
	return fmt.Sprintf("  ocr page %d  ", page), nil
}

type recorder struct {
	events []models.ProgressState
}

func (r *recorder) observe(s models.ProgressState) {
	r.events = append(r.events, s)
}

func (r *recorder) statuses() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.StatusMessage
	}
	return out
}

func newDoc(pages ...*fakePage) (*fakeDoc, *int) {
	rendered := new(int)
	for i, p := range pages {
		p.index = i + 1
		p.rendered = rendered
	}
	return &fakeDoc{pages: pages}, rendered
}

func newTestPipeline(engine *fakeEngine, sources ...*fakeSource) *Pipeline {
	resolver := fakeResolver{sources: map[models.SourceKind]document.PageSource{}}
	for _, s := range sources {
		resolver.sources[s.kind] = s
	}
	return NewPipeline(resolver, engine, DefaultConfig(), logger.NewTestLogger())
}

const longText = "This page carries a genuine embedded text layer."

func TestExtractMixedPDF(t *testing.T) {
	doc, rendered := newDoc(
		&fakePage{native: longText, hasNative: true},
		&fakePage{native: "Hi", hasNative: true},
		&fakePage{},
	)
	engine := &fakeEngine{}
	p := newTestPipeline(engine, &fakeSource{kind: models.PDF, doc: doc})

	rec := &recorder{}
	result, err := p.Extract(context.Background(), []byte("%PDF"), "application/pdf", rec.observe)
	require.NoError(t, err)

	assert.Equal(t, models.PDF, result.SourceKind)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, longText+"\n\nocr page 2\n\nocr page 3", result.Text)
	assert.Equal(t, 1, result.NativePages())
	assert.Equal(t, 2, result.OcrPages())
	assert.Equal(t, 2, engine.calls)
	assert.Equal(t, 2, *rendered)
	assert.Equal(t, []string{"eng", "eng"}, engine.langs)
	assert.True(t, doc.closed)
	assert.Equal(t, models.StateDone, p.State())

	assert.Equal(t, []string{
		"Starting extraction...",
		"Loading PDF...",
		"Loading PDF...",
		"Processing page 1 / 3...",
		"Processing page 2 / 3...",
		"Page 2: running OCR (this can take some seconds)...",
		"Processing page 3 / 3...",
		"Page 3: running OCR (this can take some seconds)...",
		"Extraction finished",
	}, rec.statuses())

	assert.Equal(t, models.ProgressState{RunID: result.RunID, CurrentPage: 2, TotalPages: 3, PercentComplete: 33, StatusMessage: "Processing page 2 / 3..."}, rec.events[4])
	assert.Equal(t, 67, rec.events[6].PercentComplete)
	for _, e := range rec.events {
		assert.Equal(t, result.RunID, e.RunID)
	}
}

func TestExtractProgressIsMonotonic(t *testing.T) {
	pages := make([]*fakePage, 7)
	for i := range pages {
		pages[i] = &fakePage{native: longText, hasNative: i%2 == 0}
	}
	doc, _ := newDoc(pages...)
	p := newTestPipeline(&fakeEngine{}, &fakeSource{kind: models.PDF, doc: doc})

	rec := &recorder{}
	_, err := p.Extract(context.Background(), nil, "scan.pdf", rec.observe)
	require.NoError(t, err)

	require.NotEmpty(t, rec.events)
	for i := 1; i < len(rec.events); i++ {
		assert.GreaterOrEqual(t, rec.events[i].PercentComplete, rec.events[i-1].PercentComplete)
		assert.GreaterOrEqual(t, rec.events[i].CurrentPage, rec.events[i-1].CurrentPage)
	}
	last := rec.events[len(rec.events)-1]
	assert.True(t, last.Finished())
	assert.Equal(t, 7, last.CurrentPage)
	assert.Equal(t, 7, last.TotalPages)
	for _, e := range rec.events[:len(rec.events)-1] {
		assert.Less(t, e.PercentComplete, 100)
	}
}

func TestExtractNativeThreshold(t *testing.T) {
	tests := []struct {
		name     string
		native   string
		decision models.ExtractionDecision
	}{
		{"short text goes to ocr", "Hi", models.DecisionOcrRequired},
		{"exactly thirty is not enough", strings.Repeat("a", 30), models.DecisionOcrRequired},
		{"padding does not count", "   " + strings.Repeat("b", 30) + "\n\n", models.DecisionOcrRequired},
		{"thirty one is native", strings.Repeat("c", 31), models.DecisionNativeText},
		{"fifty chars skip ocr", strings.Repeat("x", 50), models.DecisionNativeText},
		{"counts runes not bytes", strings.Repeat("é", 31), models.DecisionNativeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, rendered := newDoc(&fakePage{native: tt.native, hasNative: true})
			engine := &fakeEngine{}
			p := newTestPipeline(engine, &fakeSource{kind: models.PDF, doc: doc})

			result, err := p.Extract(context.Background(), nil, "application/pdf", nil)
			require.NoError(t, err)
			require.Len(t, result.Pages, 1)
			assert.Equal(t, tt.decision, result.Pages[0].Decision)

			if tt.decision == models.DecisionNativeText {
				assert.Zero(t, engine.calls)
				assert.Zero(t, *rendered)
				assert.Equal(t, strings.TrimSpace(tt.native), result.Text)
			} else {
				assert.Equal(t, 1, engine.calls)
				assert.Equal(t, "ocr page 1", result.Text)
			}
		})
	}
}

func TestExtractOcrFailureAborts(t *testing.T) {
	doc, _ := newDoc(&fakePage{}, &fakePage{}, &fakePage{}, &fakePage{}, &fakePage{})
	engine := &fakeEngine{failPage: 3}
	p := newTestPipeline(engine, &fakeSource{kind: models.PDF, doc: doc})

	rec := &recorder{}
	result, err := p.Extract(context.Background(), nil, "application/pdf", rec.observe)
	require.Error(t, err)
	assert.Nil(t, result)

	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, models.StageOcr, ee.Stage)
	assert.Equal(t, 3, ee.Page)
	assert.Contains(t, err.Error(), "tesseract crashed")

	// pages 4 and 5 are never attempted
	assert.Equal(t, 3, engine.calls)
	assert.True(t, doc.closed)
	assert.Equal(t, models.StateFailed, p.State())

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, "Error during extraction", last.StatusMessage)
	assert.Equal(t, 3, last.CurrentPage)
	assert.Equal(t, 40, last.PercentComplete)
	for _, e := range rec.events {
		assert.False(t, e.Finished())
	}
}

func TestExtractStageFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		src   *fakeSource
		stage models.Stage
		page  int
	}{
		{
			name:  "open",
			src:   &fakeSource{kind: models.PDF, openErr: boom},
			stage: models.StageOpen,
		},
		{
			name:  "native text",
			src:   &fakeSource{kind: models.PDF, doc: func() *fakeDoc { d, _ := newDoc(&fakePage{hasNative: true, native: longText}, &fakePage{nativeErr: boom}); return d }()},
			stage: models.StageNativeText,
			page:  2,
		},
		{
			name:  "render",
			src:   &fakeSource{kind: models.PDF, doc: func() *fakeDoc { d, _ := newDoc(&fakePage{renderErr: boom}); return d }()},
			stage: models.StageRender,
			page:  1,
		},
		{
			name:  "empty document",
			src:   &fakeSource{kind: models.PDF, doc: &fakeDoc{}},
			stage: models.StageOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(&fakeEngine{}, tt.src)

			_, err := p.Extract(context.Background(), nil, "application/pdf", nil)
			var ee *ExtractionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, KindEngineFailure, ee.Kind)
			assert.Equal(t, tt.stage, ee.Stage)
			assert.Equal(t, tt.page, ee.Page)
		})
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	engine := &fakeEngine{}
	p := newTestPipeline(engine)

	rec := &recorder{}
	_, err := p.Extract(context.Background(), []byte("hello"), "text/plain", rec.observe)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, ErrEngineFailure)
	assert.Empty(t, rec.events)
	assert.Zero(t, engine.calls)
	assert.Equal(t, models.StateIdle, p.State())

	// classified but no source registered
	_, err = p.Extract(context.Background(), nil, "application/pdf", rec.observe)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, rec.events)
}

func TestExtractImage(t *testing.T) {
	doc, _ := newDoc(&fakePage{})
	engine := &fakeEngine{text: map[int]string{1: "\n  receipt total 42  \n"}}
	p := newTestPipeline(engine, &fakeSource{kind: models.Image, doc: doc})

	rec := &recorder{}
	result, err := p.Extract(context.Background(), nil, "image/png", rec.observe)
	require.NoError(t, err)

	assert.Equal(t, models.Image, result.SourceKind)
	assert.Equal(t, "receipt total 42", result.Text)
	assert.Equal(t, models.DecisionOcrRequired, result.Pages[0].Decision)

	require.Len(t, rec.events, 3)
	assert.Equal(t, "Starting extraction...", rec.events[0].StatusMessage)
	assert.Equal(t, models.ProgressState{RunID: result.RunID, TotalPages: 1, StatusMessage: "Image uploaded — running OCR..."}, rec.events[1])
	assert.Equal(t, models.ProgressState{RunID: result.RunID, CurrentPage: 1, TotalPages: 1, PercentComplete: 100, StatusMessage: "Extraction finished"}, rec.events[2])
}

func TestExtractEmptyTextIsSuccess(t *testing.T) {
	doc, _ := newDoc(&fakePage{}, &fakePage{})
	engine := &fakeEngine{text: map[int]string{1: "", 2: "   "}}
	p := newTestPipeline(engine, &fakeSource{kind: models.PDF, doc: doc})

	result, err := p.Extract(context.Background(), nil, "application/pdf", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.Len(t, result.Pages, 2)
}

func TestExtractTextRoundTrip(t *testing.T) {
	doc, _ := newDoc(
		&fakePage{native: "  " + longText + "  ", hasNative: true},
		&fakePage{},
		&fakePage{native: longText + " again", hasNative: true},
	)
	p := newTestPipeline(&fakeEngine{text: map[int]string{2: ""}}, &fakeSource{kind: models.PDF, doc: doc})

	result, err := p.Extract(context.Background(), nil, "application/pdf", nil)
	require.NoError(t, err)

	blocks := make([]string, len(result.Pages))
	for i, page := range result.Pages {
		assert.Equal(t, i+1, page.Index)
		assert.Equal(t, strings.TrimSpace(page.Text), page.Text)
		blocks[i] = page.Text
	}
	assert.Equal(t, strings.TrimSpace(strings.Join(blocks, "\n\n")), result.Text)
}

func TestExtractRejectsConcurrentRun(t *testing.T) {
	doc, _ := newDoc(&fakePage{native: longText, hasNative: true})
	src := &fakeSource{
		kind:   models.PDF,
		doc:    doc,
		block:  make(chan struct{}),
		opened: make(chan struct{}),
	}
	p := newTestPipeline(&fakeEngine{}, src)

	done := make(chan error, 1)
	go func() {
		_, err := p.Extract(context.Background(), nil, "application/pdf", nil)
		done <- err
	}()

	<-src.opened
	assert.Equal(t, models.StateOpeningDocument, p.State())

	_, err := p.Extract(context.Background(), nil, "application/pdf", nil)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(src.block)
	require.NoError(t, <-done)
	assert.Equal(t, models.StateDone, p.State())

	// the guard is released once the first run returns
	src.opened, src.block = nil, nil
	_, err = p.Extract(context.Background(), nil, "application/pdf", nil)
	assert.NoError(t, err)
}

func TestExtractAppliesPreprocessors(t *testing.T) {
	doc, _ := newDoc(&fakePage{})
	cfg := DefaultConfig()
	chain, err := imgproc.ParsePreprocessors([]string{"grayscale"})
	require.NoError(t, err)
	cfg.Preprocessors = chain
	cfg.Language = "deu"

	engine := &fakeEngine{}
	resolver := fakeResolver{sources: map[models.SourceKind]document.PageSource{
		models.PDF: &fakeSource{kind: models.PDF, doc: doc},
	}}
	p := NewPipeline(resolver, engine, cfg, logger.NewTestLogger())

	result, err := p.Extract(context.Background(), nil, "application/pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "ocr page 1", result.Text)
	assert.Equal(t, []string{"deu"}, engine.langs)
}

func TestObservers(t *testing.T) {
	var a, b []string
	multi := MultiObserver(
		func(s models.ProgressState) { a = append(a, s.StatusMessage) },
		nil,
		func(s models.ProgressState) { b = append(b, s.StatusMessage) },
	)
	multi(models.ProgressState{StatusMessage: "one"})
	assert.Equal(t, []string{"one"}, a)
	assert.Equal(t, []string{"one"}, b)

	ch := make(chan models.ProgressState, 1)
	ChannelObserver(ch)(models.ProgressState{PercentComplete: 5})
	assert.Equal(t, 5, (<-ch).PercentComplete)
}

func TestConfigFrom(t *testing.T) {
	app := config.Default()
	app.Extraction.Preprocessors = []string{"grayscale", "sharpen"}
	app.OCR.Language = "fra"

	cfg, err := ConfigFrom(app)
	require.NoError(t, err)
	assert.Equal(t, DefaultRenderScale, cfg.RenderScale)
	assert.Equal(t, MinNativeTextLength, cfg.MinNativeTextLength)
	assert.Equal(t, "fra", cfg.Language)
	assert.Len(t, cfg.Preprocessors, 2)

	app.Extraction.Preprocessors = []string{"sepia"}
	_, err = ConfigFrom(app)
	assert.Error(t, err)
}
