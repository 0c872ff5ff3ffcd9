package rest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := rest.DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 2*time.Second, config.InitialBackoff)
	assert.Equal(t, 32*time.Second, config.MaxBackoff)
	assert.Equal(t, 2.0, config.Multiplier)
}

func TestExponentialBackoff(t *testing.T) {
	config := rest.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     32 * time.Second,
		Multiplier:     2.0,
	}

	tests := []struct {
		name    string
		attempt int
		minWait time.Duration
		maxWait time.Duration
	}{
		{"attempt 0", 0, 1500 * time.Millisecond, 2500 * time.Millisecond}, // 2s ± 25%
		{"attempt 1", 1, 3 * time.Second, 5 * time.Second},                 // 4s ± 25%
		{"attempt 2", 2, 6 * time.Second, 10 * time.Second},                // 8s ± 25%
		{"attempt 4", 4, 24 * time.Second, 32 * time.Second},               // 32s (capped)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run multiple times to verify jitter stays in range
			for i := 0; i < 10; i++ {
				backoff := rest.ExponentialBackoff(tt.attempt, config)
				assert.GreaterOrEqual(t, backoff, tt.minWait, "backoff too short")
				assert.LessOrEqual(t, backoff, tt.maxWait, "backoff too long")
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit error should retry", rest.NewRateLimitError("github", "too many requests"), true},
		{"service unavailable should retry", rest.NewServiceUnavailableError("github", "overloaded"), true},
		{"timeout should retry", rest.NewTimeoutError("github", "timed out"), true},
		{"authentication error should not retry", rest.NewAuthenticationError("github", "bad token"), false},
		{"invalid request should not retry", rest.NewInvalidRequestError("github", "bad request"), false},
		{"not found should not retry", rest.NewNotFoundError("github", "missing"), false},
		{"generic error should not retry", errors.New("generic error"), false},
		{"nil error should not retry", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rest.ShouldRetry(tt.err))
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	operation := func(ctx context.Context) error {
		attempts++
		return nil
	}

	config := rest.RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := rest.RetryWithBackoff(context.Background(), operation, config)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first attempt")
}

func TestRetryWithBackoff_RetryableError(t *testing.T) {
	attempts := 0
	operation := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return rest.NewRateLimitError("test", "rate limited")
		}
		return nil
	}

	config := rest.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := rest.RetryWithBackoff(context.Background(), operation, config)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should retry twice then succeed")
}

func TestRetryWithBackoff_NonRetryableError(t *testing.T) {
	attempts := 0
	operation := func(ctx context.Context) error {
		attempts++
		return rest.NewAuthenticationError("test", "bad token")
	}

	config := rest.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := rest.RetryWithBackoff(context.Background(), operation, config)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "should not retry non-retryable error")
	assert.Contains(t, err.Error(), "bad token")
}

func TestRetryWithBackoff_MaxRetriesExceeded(t *testing.T) {
	attempts := 0
	operation := func(ctx context.Context) error {
		attempts++
		return rest.NewRateLimitError("test", "rate limited")
	}

	config := rest.RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := rest.RetryWithBackoff(context.Background(), operation, config)
	require.Error(t, err)
	assert.Equal(t, 4, attempts, "should try once + 3 retries")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	attempts := 0
	operation := func(ctx context.Context) error {
		attempts++
		return rest.NewRateLimitError("test", "rate limited")
	}

	config := rest.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Multiplier:     2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	err := rest.RetryWithBackoff(ctx, operation, config)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, attempts, 3, "should respect context cancellation")
}

func TestError_Is(t *testing.T) {
	err := rest.NewRateLimitError("github", "slow down")
	assert.ErrorIs(t, err, &rest.Error{Type: rest.ErrTypeRateLimit})
	assert.NotErrorIs(t, err, &rest.Error{Type: rest.ErrTypeTimeout})
}

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType rest.ErrorType
		want    string
	}{
		{rest.ErrTypeAuthentication, "authentication error"},
		{rest.ErrTypeRateLimit, "rate limit exceeded"},
		{rest.ErrTypeNotFound, "not found"},
		{rest.ErrTypeServiceUnavailable, "service unavailable"},
		{rest.ErrTypeInvalidRequest, "invalid request"},
		{rest.ErrTypeTimeout, "timeout"},
		{rest.ErrTypeUnknown, "unknown error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.errType.String())
	}
}

func TestDefaultLogger_RedactToken(t *testing.T) {
	logger := rest.NewDefaultLogger(rest.LogLevelInfo, rest.LogFormatHuman, true)

	assert.Equal(t, "[REDACTED-6789]", logger.RedactToken("ghp_123456789"))
	assert.Equal(t, "[REDACTED]", logger.RedactToken("abc"))

	logger.SetRedaction(false)
	assert.Equal(t, "ghp_123456789", logger.RedactToken("ghp_123456789"))
}
