package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestPlateError_Error(t *testing.T) {
	err := &PlateError{Code: ErrorOCRFailed, Message: "boom"}
	if got := err.Error(); got != "OCR_FAILED: boom" {
		t.Errorf("Error(): got %q", got)
	}

	err.Cause = fmt.Errorf("tesseract exited")
	if got := err.Error(); !strings.Contains(got, "caused by: tesseract exited") {
		t.Errorf("Error() with cause: got %q", got)
	}
}

func TestNewInvalidBoxError_Is(t *testing.T) {
	err := NewInvalidBoxError("width must be positive", nil)

	if !stderrors.Is(err, ErrInvalidBox) {
		t.Error("errors.Is(err, ErrInvalidBox) should be true")
	}

	wrapped := fmt.Errorf("extract: %w", err)
	if !stderrors.Is(wrapped, ErrInvalidBox) {
		t.Error("wrapped error should still match ErrInvalidBox")
	}
	if CodeOf(wrapped) != ErrorInvalidBox {
		t.Errorf("CodeOf: got %s, want %s", CodeOf(wrapped), ErrorInvalidBox)
	}
}

func TestNewInvalidMethodError(t *testing.T) {
	err := NewInvalidMethodError("sideways")
	if !stderrors.Is(err, ErrInvalidMethod) {
		t.Error("errors.Is(err, ErrInvalidMethod) should be true")
	}
	if err.Details["method"] != "sideways" {
		t.Errorf("Details[method]: got %v", err.Details["method"])
	}
}

func TestCodeOf_NotPlateError(t *testing.T) {
	if code := CodeOf(fmt.Errorf("plain")); code != "" {
		t.Errorf("CodeOf(plain): got %q, want empty", code)
	}
	if code := CodeOf(nil); code != "" {
		t.Errorf("CodeOf(nil): got %q, want empty", code)
	}
}

func TestToMap(t *testing.T) {
	cause := fmt.Errorf("deadline exceeded")
	err := NewOCRTimeoutError("topleft", 2*time.Second, cause)

	m := err.ToMap()
	if m["error_code"] != string(ErrorOCRTimeout) {
		t.Errorf("error_code: got %v", m["error_code"])
	}
	if m["method"] != "topleft" {
		t.Errorf("method: got %v", m["method"])
	}
	if m["timeout_duration"] != "2s" {
		t.Errorf("timeout_duration: got %v", m["timeout_duration"])
	}
	if m["cause"] != "deadline exceeded" {
		t.Errorf("cause: got %v", m["cause"])
	}
}
