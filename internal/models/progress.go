package models

// ProgressState is emitted by the pipeline after every step of a run
type ProgressState struct {
	RunID           string `json:"runId"`
	CurrentPage     int    `json:"page"`
	TotalPages      int    `json:"total"`
	PercentComplete int    `json:"percent"`
	StatusMessage   string `json:"status"`
}

// Finished reports whether the state is the terminal success event
func (p ProgressState) Finished() bool {
	return p.PercentComplete == 100
}

// PipelineState is the current step of the extraction state machine
type PipelineState string

const (
	StateIdle            PipelineState = "idle"
	StateOpeningDocument PipelineState = "opening-document"
	StateProcessingPage  PipelineState = "processing-page"
	StateOcrRunning      PipelineState = "ocr-running"
	StateDone            PipelineState = "done"
	StateFailed          PipelineState = "failed"
)
