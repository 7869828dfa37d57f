package models

import (
	"time"
)

// SourceKind classifies an uploaded document
type SourceKind string

const (
	PDF         SourceKind = "pdf"
	Image       SourceKind = "image"
	Unsupported SourceKind = "unsupported"
)

// ExtractionDecision records which path a page took
type ExtractionDecision string

const (
	DecisionNativeText  ExtractionDecision = "native-text"
	DecisionOcrRequired ExtractionDecision = "ocr-required"
)

// Stage names the collaborator that failed during a run
type Stage string

const (
	StageOpen       Stage = "open"
	StageNativeText Stage = "native-text"
	StageRender     Stage = "render"
	StageOcr        Stage = "ocr"
)

// PageResult is the text block produced for a single page
type PageResult struct {
	Index    int                `json:"index"`
	Decision ExtractionDecision `json:"decision"`
	Text     string             `json:"text"`
}

// ExtractionResult is the outcome of a successful run.
// Text is the trimmed concatenation of Pages[i].Text joined by a blank line.
type ExtractionResult struct {
	RunID      string        `json:"runId"`
	SourceKind SourceKind    `json:"sourceKind"`
	PageCount  int           `json:"pageCount"`
	Text       string        `json:"text"`
	Pages      []PageResult  `json:"pages"`
	Duration   time.Duration `json:"duration"`
}

// NativePages counts pages that were served from the embedded text layer
func (r *ExtractionResult) NativePages() int {
	n := 0
	for _, p := range r.Pages {
		if p.Decision == DecisionNativeText {
			n++
		}
	}
	return n
}

// OcrPages counts pages that went through OCR
func (r *ExtractionResult) OcrPages() int {
	return len(r.Pages) - r.NativePages()
}
