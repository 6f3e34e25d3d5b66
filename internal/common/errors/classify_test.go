package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil, "selecting"))
}

func TestClassifyPassThrough(t *testing.T) {
	orig := NewValidation(CodeEmptyTrip, "normalizing", "trip has no candidate places")

	got := Classify(orig, "routing")

	require.NotNil(t, got)
	assert.Equal(t, "normalizing", got.Stage, "original stage survives re-classification")
	assert.Equal(t, orig.CorrelationID, got.CorrelationID)
	assert.Equal(t, ValidationError, got.Type)
}

func TestClassifyWrappedPassThrough(t *testing.T) {
	orig := New(NetworkError, "CONN_REFUSED", "collecting", "connection refused")
	wrapped := fmt.Errorf("loading trip: %w", orig)

	got := Classify(wrapped, "collecting")

	require.NotNil(t, got)
	assert.Equal(t, orig.CorrelationID, got.CorrelationID)
}

func TestClassifyTaxonomy(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "deadline exceeded is a timeout",
			err:           context.DeadlineExceeded,
			wantType:      TimeoutError,
			wantRetryable: true,
		},
		{
			name:          "connection refused is a network error",
			err:           errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			wantType:      NetworkError,
			wantRetryable: true,
		},
		{
			name:          "timeout keyword",
			err:           errors.New("i/o timeout waiting for response"),
			wantType:      TimeoutError,
			wantRetryable: true,
		},
		{
			name:          "permission denied never retries",
			err:           errors.New("permission denied for relation trips"),
			wantType:      PermissionError,
			wantRetryable: false,
		},
		{
			name:          "rate limiting is a resource error",
			err:           errors.New("rate limit exceeded, try again later"),
			wantType:      ResourceError,
			wantRetryable: true,
		},
		{
			name:          "service unavailable is external",
			err:           errors.New("service unavailable: 503"),
			wantType:      ExternalServiceError,
			wantRetryable: true,
		},
		{
			name:          "validation keyword never retries",
			err:           errors.New("validation failed: wishLevel out of range"),
			wantType:      ValidationError,
			wantRetryable: false,
		},
		{
			name:          "malformed payload is a data error",
			err:           errors.New("cannot unmarshal number into string"),
			wantType:      DataError,
			wantRetryable: true,
		},
		{
			name:          "unrecognized errors fail open",
			err:           errors.New("something odd happened"),
			wantType:      UnknownError,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "collecting")

			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantRetryable, got.Retryable)
			assert.Equal(t, "collecting", got.Stage)
			assert.NotEmpty(t, got.CorrelationID)
		})
	}
}

func TestClassifyCancellation(t *testing.T) {
	got := Classify(context.Canceled, "routing")

	require.NotNil(t, got)
	assert.Equal(t, CodeCancelled, got.Code)
	assert.False(t, got.Retryable)
}

func TestExternalServiceValidationNotRetryable(t *testing.T) {
	// A collaborator rejecting our payload will not accept it on retry.
	err := NewExternalService("elasticsearch", "collecting",
		errors.New("validation error: unknown field"))

	got := Classify(err, "collecting")

	require.NotNil(t, got)
	assert.False(t, got.Retryable)
}

func TestWithContextImmutable(t *testing.T) {
	base := New(DataError, CodeMalformedRow, "collecting", "bad row")

	derived := base.WithContext("rowId", "place-7")

	assert.Nil(t, base.Context["rowId"])
	assert.Equal(t, "place-7", derived.Context["rowId"])
	assert.Equal(t, base.CorrelationID, derived.CorrelationID)
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("broken pipe")
	err := NewExternalService("postgres", "collecting", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestNewTimestamps(t *testing.T) {
	before := time.Now().UTC()
	err := New(NetworkError, "CONN", "collecting", "down")

	assert.False(t, err.Timestamp.Before(before.Add(-time.Second)))
}
