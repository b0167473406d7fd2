// Package errors defines the coded error type shared by the plate reading
// pipeline, the MCP server and the queue worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidBox    ErrorCode = "INVALID_BOX"
	ErrorInvalidMethod ErrorCode = "INVALID_METHOD"

	// Recognition errors
	ErrorOCRFailed  ErrorCode = "OCR_FAILED"
	ErrorOCRTimeout ErrorCode = "OCR_TIMEOUT"
	ErrorPrediction ErrorCode = "PREDICTION_FAILED"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
	ErrorPublishFailed ErrorCode = "PUBLISH_FAILED"
)

// Sentinel causes, matched with errors.Is through PlateError.Unwrap.
var (
	ErrInvalidBox    = stderrors.New("invalid bounding box")
	ErrInvalidMethod = stderrors.New("invalid extraction method")
)

// PlateError represents a structured pipeline error
type PlateError struct {
	Code      ErrorCode
	Message   string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *PlateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PlateError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewInvalidBoxError(reason string, details map[string]interface{}) *PlateError {
	return &PlateError{
		Code:      ErrorInvalidBox,
		Message:   reason,
		Timestamp: time.Now(),
		Details:   details,
		Cause:     ErrInvalidBox,
	}
}

func NewInvalidMethodError(name string) *PlateError {
	return &PlateError{
		Code:      ErrorInvalidMethod,
		Message:   fmt.Sprintf("unknown extraction method: %q", name),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"method": name,
		},
		Cause: ErrInvalidMethod,
	}
}

func NewOCRFailedError(method string, cause error) *PlateError {
	return &PlateError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("character recognition failed for variant: %s", method),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"method": method,
		},
		Cause: cause,
	}
}

func NewOCRTimeoutError(method string, timeout time.Duration, cause error) *PlateError {
	return &PlateError{
		Code:      ErrorOCRTimeout,
		Message:   fmt.Sprintf("recognition of variant %s timed out after %v", method, timeout),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"method":           method,
			"timeout_duration": timeout.String(),
		},
		Cause: cause,
	}
}

func NewPredictionError(cause error) *PlateError {
	return &PlateError{
		Code:      ErrorPrediction,
		Message:   "bounding box prediction failed",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewStorageFailedError(readID string, cause error) *PlateError {
	return &PlateError{
		Code:      ErrorStorageFailed,
		Message:   "failed to store plate read",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"read_id": readID,
		},
		Cause: cause,
	}
}

func NewPublishFailedError(channel string, cause error) *PlateError {
	return &PlateError{
		Code:      ErrorPublishFailed,
		Message:   fmt.Sprintf("failed to publish plate event on %s", channel),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"channel": channel,
		},
		Cause: cause,
	}
}

// ToMap converts the error to a map for JSON responses and log fields
func (e *PlateError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}

// CodeOf returns the code of the first PlateError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var pe *PlateError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
