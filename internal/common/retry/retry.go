// Package retry drives an operation to success with exponential backoff,
// consulting the error classifier between attempts. Cancellation is checked
// before every attempt and honored during the backoff sleep.
package retry

import (
	"context"
	"math/rand"
	"time"

	apperrors "trip-optimizer/internal/common/errors"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/common/metrics"
)

// Operation is one retryable unit of work. It must observe ctx.
type Operation func(ctx context.Context) error

// Config is one retry profile.
type Config struct {
	MaxRetries int           // retries after the initial attempt
	BaseDelay  time.Duration // backoff base
	MaxDelay   time.Duration // backoff cap (pre- and post-jitter)

	// RetryableTypes, when non-nil, replaces the per-error verdict with a
	// profile-level allow list. Validation and permission errors never retry
	// regardless of this set.
	RetryableTypes map[apperrors.ErrorType]bool
}

// DefaultConfig: 3 retries, 1s base, 10s cap, per-error verdicts.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

// AggressiveConfig: 5 retries, 500ms base, 8s cap, widest retryable set —
// every kind except validation/permission retries, including external-service
// failures that look like far-side validation.
func AggressiveConfig() Config {
	return Config{
		MaxRetries: 5,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		RetryableTypes: map[apperrors.ErrorType]bool{
			apperrors.NetworkError:         true,
			apperrors.TimeoutError:         true,
			apperrors.ResourceError:        true,
			apperrors.DataError:            true,
			apperrors.ExternalServiceError: true,
			apperrors.UnknownError:         true,
		},
	}
}

// ConservativeConfig: 2 retries, 2s base, 15s cap, network/timeout only.
func ConservativeConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   15 * time.Second,
		RetryableTypes: map[apperrors.ErrorType]bool{
			apperrors.NetworkError: true,
			apperrors.TimeoutError: true,
		},
	}
}

// Profile resolves a named profile; unknown names fall back to the default.
func Profile(name string) Config {
	switch name {
	case "aggressive":
		return AggressiveConfig()
	case "conservative":
		return ConservativeConfig()
	default:
		return DefaultConfig()
	}
}

// BackoffDelay returns the pre-jitter delay before the given retry
// (1-based): min(base * 2^retry, max).
func (c Config) BackoffDelay(retry int) time.Duration {
	d := c.BaseDelay << uint(retry)
	if d > c.MaxDelay || d <= 0 {
		return c.MaxDelay
	}
	return d
}

func (c Config) shouldRetry(cerr *apperrors.ClassifiedError) bool {
	if cerr.Type == apperrors.ValidationError || cerr.Type == apperrors.PermissionError {
		return false
	}
	if c.RetryableTypes != nil {
		return c.RetryableTypes[cerr.Type]
	}
	return cerr.Retryable
}

const jitterCeiling = time.Second

// Do runs op until it succeeds, the classified error is non-retryable, ctx is
// cancelled, or retries are exhausted. The returned error is always a
// *apperrors.ClassifiedError on failure.
func Do(ctx context.Context, cfg Config, log logger.Logger, stage string, op Operation) error {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return apperrors.NewCancelled(stage)
		default:
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		cerr := apperrors.Classify(err, stage)
		if !cfg.shouldRetry(cerr) || attempt >= cfg.MaxRetries {
			return cerr
		}

		delay := cfg.BackoffDelay(attempt + 1)
		delay += time.Duration(rand.Int63n(int64(jitterCeiling)))
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		if log != nil {
			log.Warn("operation failed, retrying", map[string]interface{}{
				"stage":         stage,
				"attempt":       attempt + 1,
				"maxRetries":    cfg.MaxRetries,
				"nextRetryIn":   delay.String(),
				"errorType":     string(cerr.Type),
				"correlationId": cerr.CorrelationID,
			})
		}

		metrics.RetryAttempts.WithLabelValues(stage).Inc()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return apperrors.NewCancelled(stage)
		case <-timer.C:
		}
	}
}
