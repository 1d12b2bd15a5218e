package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		target    interface{}
		retryable bool
	}{
		{400, new(*InvalidRequestError), false},
		{401, new(*AuthenticationError), false},
		{402, new(*QuotaExceededError), false},
		{403, new(*AccessDeniedError), false},
		{404, new(*NotFoundError), false},
		{408, new(*RequestTimeoutError), true},
		{413, new(*ContextLengthError), false},
		{422, new(*InvalidRequestError), false},
		{429, new(*RateLimitError), true},
		{500, new(*ServerError), true},
		{503, new(*ServerError), true},
		{529, new(*ServerError), true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ErrorFromStatusCode(tt.status, "test error", "anthropic", "", nil)
			assert.ErrorAs(t, err, tt.target)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"auth error", &AuthenticationError{}, false},
		{"context length", &ContextLengthError{}, false},
		{"configuration", &ConfigurationError{}, false},
		{"abort", &AbortError{}, false},
		{"rate limit", &RateLimitError{}, true},
		{"server", &ServerError{}, true},
		{"network", &NetworkError{}, true},
		{"wrapped server", fmt.Errorf("round 2: %w", &ServerError{}), true},
		{"plain error", errors.New("mystery"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestErrorFromTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var abort *AbortError
	require.ErrorAs(t, errorFromTransport(ctx, "anthropic", context.Canceled), &abort)

	var timeout *RequestTimeoutError
	require.ErrorAs(t, errorFromTransport(context.Background(), "anthropic", context.DeadlineExceeded), &timeout)

	var network *NetworkError
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	require.ErrorAs(t, errorFromTransport(context.Background(), "anthropic", opErr), &network)
	assert.ErrorIs(t, network, opErr)
}

func TestProviderErrorMessage(t *testing.T) {
	err := ErrorFromStatusCode(429, "slow down", "openai", "rate_limit", nil)
	assert.Equal(t, "[openai] slow down (status=429, retryable=true)", err.Error())
}
