package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelerator-admin/internal/common/errors"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := testClient()
	attempts := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return int64(42), nil
	}, "create-instance")

	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := testClient()
	attempts := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("rpc error: code = NotFound desc = no process with id 'x' found")
	}, "create-instance")

	assert.Equal(t, 1, attempts)
	assert.Equal(t, errors.ErrCodeNotFound, errors.KindOf(err))
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	c := testClient()
	attempts := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("context deadline exceeded")
	}, "create-instance")

	assert.Equal(t, 3, attempts)
	assert.Equal(t, errors.ErrCodeUpstreamFailure, errors.KindOf(err))
}

func TestExecuteWithRetry_Cancelled(t *testing.T) {
	c := &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("unavailable")
	}, "create-instance")

	assert.Equal(t, errors.ErrCodeUpstreamFailure, errors.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapZeebeError(t *testing.T) {
	c := testClient()
	tests := []struct {
		msg  string
		want errors.ErrorCode
	}{
		{"connection reset by peer", errors.ErrCodeUpstreamFailure},
		{"process not found", errors.ErrCodeNotFound},
		{"permission denied", errors.ErrCodeUnauthenticated},
		{"encode variables: json: unsupported type", errors.ErrCodeInvalidArgument},
		{"something odd", errors.ErrCodeUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := c.mapZeebeError(stderrors.New(tt.msg), "op", 0)
			assert.Equal(t, tt.want, errors.KindOf(err))
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("Deadline Exceeded")))
	assert.True(t, isRetryableZeebeError(stderrors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, isRetryableZeebeError(stderrors.New("invalid argument")))
}
