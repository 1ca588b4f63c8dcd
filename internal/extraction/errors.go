package extraction

import (
	"errors"
	"fmt"
	"time"
)

// ExtractionErrorCode represents specific extraction error types.
type ExtractionErrorCode string

const (
	ErrConfiguration          ExtractionErrorCode = "CONFIGURATION"
	ErrUnsupportedFormat      ExtractionErrorCode = "UNSUPPORTED_FORMAT"
	ErrRecognitionUnavailable ExtractionErrorCode = "RECOGNITION_UNAVAILABLE"
	ErrMalformedResponse      ExtractionErrorCode = "MALFORMED_RESPONSE"
	ErrNetwork                ExtractionErrorCode = "NETWORK"
	ErrRateLimited            ExtractionErrorCode = "RATE_LIMITED"
	ErrInvalidDocument        ExtractionErrorCode = "INVALID_DOCUMENT"
	ErrInvalidRequest         ExtractionErrorCode = "INVALID_REQUEST"
)

// PDFConversionMessage is shown when a PDF reaches the OCR path.
const PDFConversionMessage = "PDF extraction requires conversion to image. Please convert your PDF to an image (JPEG/PNG) and upload again."

// ExtractionError is a structured error for extraction failures.
type ExtractionError struct {
	Code      ExtractionErrorCode
	Message   string
	Method    Method
	Retryable bool
	Cause     error

	// RetryAfter is the wait the upstream asked for, if it said.
	RetryAfter time.Duration
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *ExtractionError) IsRetryable() bool {
	return e.Retryable
}

// ErrorCode returns the code of the first ExtractionError in err's chain,
// or "" if there is none.
func ErrorCode(err error) ExtractionErrorCode {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Code
	}
	return ""
}
