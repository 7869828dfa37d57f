package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/internal/service/extraction"
	"github.com/feichai0017/content-analyzer/internal/utils/validator"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// ErrBadRequest marks malformed request bodies
var ErrBadRequest = errors.New("bad request")

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// errorFor maps a service error to an HTTP status and response body
func errorFor(err error) (int, ErrorResponse) {
	var ee *extraction.ExtractionError
	switch {
	case errors.Is(err, extraction.ErrRunInProgress):
		return http.StatusConflict, ErrorResponse{
			Error:   "run_in_progress",
			Message: "Another extraction is already running",
		}
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, ErrorResponse{
			Error:   "unsupported_format",
			Message: "Only PDF or image files are supported.",
		}
	case errors.As(err, &ee) && ee.Kind == extraction.KindEngineFailure:
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "engine_failure",
			Message: "Error extracting text",
			Details: map[string]interface{}{
				"stage": string(ee.Stage),
				"page":  ee.Page,
			},
		}
	case errors.Is(err, validator.ErrInvalidFile), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_file",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal",
			Message: "Internal server error",
		}
	}
}

func handleError(c *gin.Context, log logger.Logger, err error) {
	status, response := errorFor(err)
	log.Error(response.Message,
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
		logger.Error(err),
	)
	c.JSON(status, response)
}
