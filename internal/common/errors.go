package common

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class for logs and persisted job rows.
type ErrorCode string

const (
	CodeRasterizationFailed ErrorCode = "RASTERIZATION_FAILED"
	CodeEngineUnavailable   ErrorCode = "ENGINE_UNAVAILABLE"
	CodeNoTextExtracted     ErrorCode = "NO_TEXT_EXTRACTED"
	CodeUnsupportedFormat   ErrorCode = "UNSUPPORTED_FORMAT"
	CodeConfigError         ErrorCode = "CONFIG_ERROR"
	CodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	// ErrRasterization means no page images could be produced; fatal for the document.
	ErrRasterization = errors.New("rasterization failed")
	// ErrEngineUnavailable is a per-adapter failure; it triggers fallback and is
	// never surfaced to the caller directly.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	// ErrNoTextExtracted means every engine on every page came back empty.
	ErrNoTextExtracted = errors.New("no text extracted")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
)

// NewAppError builds an AppError with a code, message and cause.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// RasterizationError marks a PDF that could not be rendered to page images.
func RasterizationError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrRasterization
	} else {
		cause = fmt.Errorf("%w: %w", ErrRasterization, cause)
	}
	return NewAppError(CodeRasterizationFailed, message, cause)
}

// EngineUnavailableError marks a single adapter failure inside the fallback chain.
func EngineUnavailableError(engineID string, cause error) *AppError {
	if cause == nil {
		cause = ErrEngineUnavailable
	} else {
		cause = fmt.Errorf("%w: %w", ErrEngineUnavailable, cause)
	}
	return NewAppError(CodeEngineUnavailable, fmt.Sprintf("engine %q failed", engineID), cause)
}

// NoTextExtractedError marks total recognition failure for a page or document.
func NoTextExtractedError(message string) *AppError {
	return NewAppError(CodeNoTextExtracted, message, ErrNoTextExtracted)
}
