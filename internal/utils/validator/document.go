package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/feichai0017/content-analyzer/internal/agent"
	"github.com/feichai0017/content-analyzer/internal/models"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// ErrInvalidFile is wrapped by every validation failure except unsupported formats
var ErrInvalidFile = errors.New("invalid file")

const (
	CodeEmptyFile         = "EMPTY_FILE"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// DocumentValidator checks uploads before they reach the pipeline
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize int64
}

type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type FileInfo struct {
	Filename  string            `json:"filename"`
	Size      int64             `json:"size"`
	MimeType  string            `json:"mimeType"`
	Extension string            `json:"extension"`
	Hash      string            `json:"hash"`
	Kind      models.SourceKind `json:"kind"`
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil || config.MaxFileSize <= 0 {
		config = &ValidatorConfig{
			MaxFileSize: 50 * 1024 * 1024, // 50MB
		}
	}
	return &DocumentValidator{
		logger: log,
		config: config,
	}
}

// Validate inspects an upload held in memory. The returned error is nil for
// valid files and otherwise wraps agent.ErrUnsupportedFormat or ErrInvalidFile.
func (v *DocumentValidator) Validate(filename string, data []byte) (*ValidationResult, error) {
	hash := sha256.Sum256(data)
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  filename,
			Size:      int64(len(data)),
			Extension: strings.ToLower(filepath.Ext(filename)),
			Hash:      hex.EncodeToString(hash[:]),
		},
	}

	if len(data) == 0 {
		result.addError(CodeEmptyFile, "File is empty", "size")
	}
	if result.FileInfo.Size > v.config.MaxFileSize {
		result.addError(CodeFileTooLarge,
			fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize), "size")
	}

	result.FileInfo.MimeType = http.DetectContentType(data)
	result.FileInfo.Kind = agent.ClassifyUpload(filename, result.FileInfo.MimeType)
	if result.FileInfo.Kind == models.Unsupported {
		result.addError(CodeUnsupportedFormat, "Only PDF or image files are supported", "mimeType")
	}

	if !result.IsValid {
		v.logger.Warn("Upload rejected",
			logger.String("filename", filename),
			logger.Int64("size", result.FileInfo.Size),
			logger.String("mimeType", result.FileInfo.MimeType),
			logger.String("code", result.Errors[0].Code),
		)
	}
	return result, result.Err()
}

func (r *ValidationResult) addError(code, message, field string) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Code: code, Message: message, Field: field})
}

// Err converts the result into an error value
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	for _, e := range r.Errors {
		if e.Code == CodeUnsupportedFormat {
			return fmt.Errorf("%w: %s", agent.ErrUnsupportedFormat, r.FileInfo.MimeType)
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidFile, r.Errors[0].Message)
}
