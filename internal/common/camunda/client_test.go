package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "erp-helpdesk-workers/internal/common/errors"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	result, err := executeWithRetry(context.Background(), fastRetry, func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "create-instance")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentErrors(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("rpc error: code = NotFound desc = process not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeBrokerUnavailable, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := executeWithRetry(context.Background(), fastRetry, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("deadline exceeded")
	}, "topology")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 3, stdErr.Metadata["attempts"])
}

func TestExecuteWithRetry_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: time.Second}
	_, err := executeWithRetry(ctx, slow, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("connection reset by peer")
	}, "topology")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
