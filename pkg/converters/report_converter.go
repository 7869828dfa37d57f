package converters

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feichai0017/content-analyzer/internal/models"
)

// Report is the document returned by the API and printed by the CLI
type Report struct {
	RunID       string                 `json:"runId"`
	Status      string                 `json:"status"`
	Text        string                 `json:"text"`
	Pages       []PageSummary          `json:"pages"`
	Analysis    *models.AnalysisResult `json:"analysis,omitempty"`
	Metadata    DocumentMetadata       `json:"metadata"`
	ProcessedAt time.Time              `json:"processedAt"`
}

// PageSummary describes how one page was read
type PageSummary struct {
	Index    int    `json:"index"`
	Decision string `json:"decision"`
	Chars    int    `json:"chars"`
}

type DocumentMetadata struct {
	FileName     string `json:"fileName,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	Hash         string `json:"hash,omitempty"`
	SourceKind   string `json:"sourceKind"`
	PageCount    int    `json:"pageCount"`
	NativePages  int    `json:"nativePages"`
	OcrPages     int    `json:"ocrPages"`
	ProcessingMs int64  `json:"processingMs"`
}

// ReportConverter builds reports from extraction results
type ReportConverter struct {
	now func() time.Time
}

func NewReportConverter() *ReportConverter {
	return &ReportConverter{now: time.Now}
}

// Convert builds a report. analysis may be nil when it was not requested.
func (c *ReportConverter) Convert(result *models.ExtractionResult, analysis *models.AnalysisResult) (*Report, error) {
	if result == nil {
		return nil, fmt.Errorf("no extraction result to convert")
	}

	report := &Report{
		RunID:       result.RunID,
		Status:      "completed",
		Text:        result.Text,
		Pages:       make([]PageSummary, 0, len(result.Pages)),
		Analysis:    analysis,
		ProcessedAt: c.now(),
		Metadata: DocumentMetadata{
			SourceKind:   string(result.SourceKind),
			PageCount:    result.PageCount,
			NativePages:  result.NativePages(),
			OcrPages:     result.OcrPages(),
			ProcessingMs: result.Duration.Milliseconds(),
		},
	}

	for _, page := range result.Pages {
		report.Pages = append(report.Pages, PageSummary{
			Index:    page.Index,
			Decision: string(page.Decision),
			Chars:    utf8.RuneCountInString(page.Text),
		})
	}
	return report, nil
}

// WithFile attaches upload details to the report metadata
func (r *Report) WithFile(name string, size int64, hash string) *Report {
	r.Metadata.FileName = name
	r.Metadata.FileSize = size
	r.Metadata.Hash = hash
	return r
}

// ToText renders the plain-text download body
func ToText(r *Report) string {
	if r == nil || r.Text == "" {
		return ""
	}
	return strings.TrimRight(r.Text, "\n") + "\n"
}

// TextFilename is the download name for the plain-text body
func TextFilename(r *Report) string {
	if r == nil || r.Metadata.FileName == "" {
		return "extracted_text.txt"
	}
	name := r.Metadata.FileName
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	return name + "_text.txt"
}
