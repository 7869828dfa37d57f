package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/internal/agent"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/internal/service/analysis"
	"github.com/feichai0017/content-analyzer/internal/service/extraction"
	"github.com/feichai0017/content-analyzer/internal/utils/validator"
	"github.com/feichai0017/content-analyzer/pkg/converters"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// ProgressSink receives a copy of every progress event, e.g. a Redis publisher
type ProgressSink interface {
	Observer(ctx context.Context) func(models.ProgressState)
}

type DocumentHandler struct {
	extractor extraction.Extractor
	validator *validator.DocumentValidator
	converter *converters.ReportConverter
	sink      ProgressSink
	logger    logger.Logger
}

func NewDocumentHandler(
	extractor extraction.Extractor,
	documentValidator *validator.DocumentValidator,
	sink ProgressSink,
	log logger.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		extractor: extractor,
		validator: documentValidator,
		converter: converters.NewReportConverter(),
		sink:      sink,
		logger:    log,
	}
}

type upload struct {
	name string
	hint string
	data []byte
	info validator.FileInfo
}

// Extract handles POST /documents/extract.
// Query flags: stream=true for server-sent progress, analyze=false to skip
// lexical analysis, format=text for a plain-text download.
func (h *DocumentHandler) Extract(c *gin.Context) {
	up, err := h.readUpload(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	h.logger.Info("Extraction requested",
		logger.String("filename", up.name),
		logger.Int64("size", up.info.Size),
		logger.String("kind", string(up.info.Kind)),
		logger.String("hash", up.info.Hash),
	)

	if queryBool(c, "stream", false) {
		h.stream(c, up)
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), up.data, up.hint, h.remoteObserver(c.Request.Context()))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	report, err := h.report(c, up, result)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if c.Query("format") == "text" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", converters.TextFilename(report)))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(converters.ToText(report)))
		return
	}
	c.JSON(http.StatusOK, report)
}

type outcome struct {
	result *models.ExtractionResult
	err    error
}

func (h *DocumentHandler) stream(c *gin.Context, up *upload) {
	ctx := c.Request.Context()
	events := make(chan models.ProgressState, 16)
	done := make(chan outcome, 1)

	go func() {
		observer := extraction.MultiObserver(extraction.ChannelObserver(events), h.remoteObserver(ctx))
		result, err := h.extractor.Extract(ctx, up.data, up.hint, observer)
		close(events)
		done <- outcome{result: result, err: err}
	}()
	// keep the extraction goroutine unblocked if the client goes away
	defer func() {
		for range events {
		}
	}()

	// errors raised before the first event still get a proper status code
	first, ok := <-events
	if !ok {
		out := <-done
		if out.err != nil {
			handleError(c, h.logger, out.err)
			return
		}
		h.writeResult(c, up, out.result)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	h.sendEvent(c, "progress", first)

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-events:
			if ok {
				h.sendEvent(c, "progress", state)
				continue
			}
		}

		out := <-done
		if out.err != nil {
			status, response := errorFor(out.err)
			h.logger.Error(response.Message, logger.Int("status", status), logger.Error(out.err))
			h.sendEvent(c, "error", response)
			return
		}
		report, err := h.report(c, up, out.result)
		if err != nil {
			_, response := errorFor(err)
			h.sendEvent(c, "error", response)
			return
		}
		h.sendEvent(c, "result", report)
		return
	}
}

func (h *DocumentHandler) sendEvent(c *gin.Context, name string, data interface{}) {
	c.SSEvent(name, data)
	c.Writer.Flush()
}

func (h *DocumentHandler) writeResult(c *gin.Context, up *upload, result *models.ExtractionResult) {
	report, err := h.report(c, up, result)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *DocumentHandler) report(c *gin.Context, up *upload, result *models.ExtractionResult) (*converters.Report, error) {
	var summary *models.AnalysisResult
	if queryBool(c, "analyze", true) {
		a := analysis.Analyze(result.Text)
		summary = &a
	}
	report, err := h.converter.Convert(result, summary)
	if err != nil {
		return nil, err
	}
	return report.WithFile(up.name, up.info.Size, up.info.Hash), nil
}

func (h *DocumentHandler) readUpload(c *gin.Context) (*upload, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing multipart field \"file\"", validator.ErrInvalidFile)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", validator.ErrInvalidFile, err)
	}

	result, err := h.validator.Validate(header.Filename, data)
	if err != nil {
		return nil, err
	}

	// the pipeline classifies again; hand it whichever hint produced the kind
	hint := header.Filename
	if agent.Classify(hint) != result.FileInfo.Kind {
		hint = result.FileInfo.MimeType
	}
	return &upload{name: header.Filename, hint: hint, data: data, info: result.FileInfo}, nil
}

func (h *DocumentHandler) remoteObserver(ctx context.Context) extraction.Observer {
	if h.sink == nil {
		return nil
	}
	return h.sink.Observer(ctx)
}

func queryBool(c *gin.Context, key string, def bool) bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
