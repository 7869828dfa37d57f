package extraction

import (
	"errors"
	"fmt"

	"github.com/feichai0017/content-analyzer/internal/agent"
	"github.com/feichai0017/content-analyzer/internal/models"
)

// ErrorKind classifies why a run produced no result
type ErrorKind string

const (
	KindUnsupportedFormat ErrorKind = "unsupported-format"
	KindEngineFailure     ErrorKind = "engine-failure"
)

var (
	ErrUnsupportedFormat = agent.ErrUnsupportedFormat
	ErrEngineFailure     = errors.New("engine failure")
	ErrRunInProgress     = errors.New("extraction already in progress")
)

// ExtractionError is returned by Extract for every failed run. Page is the
// 1-based page being processed, or 0 when the failure happened before the
// page loop.
type ExtractionError struct {
	Kind  ErrorKind
	Stage models.Stage
	Page  int
	Err   error
}

func (e *ExtractionError) Error() string {
	switch {
	case e.Kind == KindUnsupportedFormat:
		return fmt.Sprintf("unsupported format: %v", e.Err)
	case e.Page > 0:
		return fmt.Sprintf("extraction failed at %s on page %d: %v", e.Stage, e.Page, e.Err)
	default:
		return fmt.Sprintf("extraction failed at %s: %v", e.Stage, e.Err)
	}
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so callers can use errors.Is
func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrUnsupportedFormat:
		return e.Kind == KindUnsupportedFormat
	case ErrEngineFailure:
		return e.Kind == KindEngineFailure
	}
	return false
}

func unsupported(err error) *ExtractionError {
	return &ExtractionError{Kind: KindUnsupportedFormat, Err: err}
}

func engineFailure(stage models.Stage, page int, err error) *ExtractionError {
	return &ExtractionError{Kind: KindEngineFailure, Stage: stage, Page: page, Err: err}
}
