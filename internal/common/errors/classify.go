// internal/common/errors/classify.go
package errors

import (
	"context"
	stderrors "errors"
	"net"
	"strings"
)

// Classify maps an arbitrary failure to a ClassifiedError. Already-classified
// errors pass through untouched so the correlation id assigned at the failure
// site survives every retry.
func Classify(err error, stage string) *ClassifiedError {
	if err == nil {
		return nil
	}

	var cerr *ClassifiedError
	if stderrors.As(err, &cerr) {
		return cerr
	}

	if stderrors.Is(err, context.Canceled) {
		return NewCancelled(stage)
	}

	t, code := inspect(err)
	out := New(t, code, stage, err.Error())
	out.cause = err

	// External-service failures whose message points at a validation problem
	// are a caller bug on the far side; retrying cannot fix them.
	if t == ExternalServiceError && mentionsValidation(err.Error()) {
		out.Retryable = false
	}
	return out
}

// IsRetryable classifies err (if needed) and returns its verdict.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err, "").Retryable
}

func inspect(err error) (ErrorType, string) {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return TimeoutError, "DEADLINE_EXCEEDED"
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return TimeoutError, "NETWORK_TIMEOUT"
		}
		return NetworkError, "NETWORK_FAILURE"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return TimeoutError, "TIMEOUT"
	case containsAny(msg, "connection refused", "connection reset", "no such host", "network", "unreachable", "broken pipe", "dial tcp"):
		return NetworkError, "NETWORK_FAILURE"
	case containsAny(msg, "permission denied", "forbidden", "unauthorized", "access denied"):
		return PermissionError, "ACCESS_DENIED"
	case containsAny(msg, "rate limit", "too many requests", "quota", "resource exhausted"):
		return ResourceError, "RESOURCE_EXHAUSTED"
	case containsAny(msg, "service unavailable", "bad gateway", "upstream", "external service", "status 502", "status 503"):
		return ExternalServiceError, CodeProviderFailed
	case mentionsValidation(msg):
		return ValidationError, "INVALID_INPUT"
	case containsAny(msg, "unmarshal", "parse", "malformed", "missing field", "unexpected end", "invalid character", "no rows", "scan"):
		return DataError, CodeMalformedRow
	default:
		// Fail open: an unrecognized failure is assumed transient.
		return UnknownError, "UNKNOWN"
	}
}

func mentionsValidation(msg string) bool {
	return containsAny(strings.ToLower(msg), "validation", "invalid input", "invalid request", "must be", "required field")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
