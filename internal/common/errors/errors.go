// Package errors provides the classified error type shared by every pipeline
// stage: a closed taxonomy, a retryability verdict, and a correlation id that
// survives across retries of one logical operation.
package errors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrorType is the closed failure taxonomy.
type ErrorType string

const (
	NetworkError         ErrorType = "NETWORK_ERROR"
	TimeoutError         ErrorType = "TIMEOUT_ERROR"
	PermissionError      ErrorType = "PERMISSION_ERROR"
	ValidationError      ErrorType = "VALIDATION_ERROR"
	ResourceError        ErrorType = "RESOURCE_ERROR"
	ExternalServiceError ErrorType = "EXTERNAL_SERVICE_ERROR"
	DataError            ErrorType = "DATA_ERROR"
	UnknownError         ErrorType = "UNKNOWN_ERROR"
)

// Codes reused across the pipeline.
const (
	CodeCancelled      = "OPERATION_CANCELLED"
	CodeEmptyTrip      = "EMPTY_TRIP"
	CodeNoMembers      = "NO_MEMBERS"
	CodeBadRequest     = "INVALID_TRIP_REQUEST"
	CodeMalformedRow   = "MALFORMED_RECORD"
	CodeProviderFailed = "PROVIDER_FAILED"
)

// ClassifiedError is constructed once at the failure site and never mutated
// afterwards.
type ClassifiedError struct {
	Type          ErrorType              `json:"type"`
	Code          string                 `json:"code"`
	Stage         string                 `json:"stage"`
	Retryable     bool                   `json:"retryable"`
	Message       string                 `json:"message"`
	Context       map[string]interface{} `json:"context,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlationId"`
	cause         error
}

func (e *ClassifiedError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s[%s] at %s: %s", e.Type, e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the original failure for errors.Is/As chains.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// DefaultRetryable is the taxonomy-level verdict: transient infrastructure
// kinds retry, caller/input kinds do not, unknown fails open.
func DefaultRetryable(t ErrorType) bool {
	switch t {
	case ValidationError, PermissionError:
		return false
	default:
		return true
	}
}

// New builds a ClassifiedError with the taxonomy-default retryability and a
// fresh correlation id.
func New(t ErrorType, code, stage, message string) *ClassifiedError {
	return &ClassifiedError{
		Type:          t,
		Code:          code,
		Stage:         stage,
		Retryable:     DefaultRetryable(t),
		Message:       message,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
	}
}

// WithContext returns a copy carrying extra key/value context. The receiver
// is left untouched so already-surfaced errors stay immutable.
func (e *ClassifiedError) WithContext(key string, value interface{}) *ClassifiedError {
	clone := *e
	clone.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	clone.Context[key] = value
	return &clone
}

// NewValidation builds a non-retryable validation error.
func NewValidation(code, stage, message string) *ClassifiedError {
	return New(ValidationError, code, stage, message)
}

// NewData wraps a malformed/missing-field failure.
func NewData(code, stage string, cause error) *ClassifiedError {
	e := New(DataError, code, stage, cause.Error())
	e.cause = cause
	return e
}

// NewExternalService wraps a collaborator failure, naming the service. A
// far-side validation complaint will not pass on retry, so it comes back
// non-retryable.
func NewExternalService(service, stage string, cause error) *ClassifiedError {
	e := New(ExternalServiceError, CodeProviderFailed, stage, fmt.Sprintf("external service %q: %v", service, cause))
	e.cause = cause
	e.Context = map[string]interface{}{"service": service}
	if mentionsValidation(cause.Error()) {
		e.Retryable = false
	}
	return e
}

// NewCancelled reports a cooperative cancellation. Never retryable.
func NewCancelled(stage string) *ClassifiedError {
	e := New(UnknownError, CodeCancelled, stage, "operation cancelled")
	e.Retryable = false
	return e
}
