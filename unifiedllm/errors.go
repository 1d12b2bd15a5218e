package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// SDKError is the root of every error this package returns.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *SDKError) Unwrap() error { return e.Cause }

// ProviderError is a failure reported by a provider, usually with an HTTP
// status. RetryAfter is in seconds.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Provider failures by status class.
type (
	AuthenticationError struct{ ProviderError }
	AccessDeniedError   struct{ ProviderError }
	NotFoundError       struct{ ProviderError }
	InvalidRequestError struct{ ProviderError }
	RateLimitError      struct{ ProviderError }
	ServerError         struct{ ProviderError }
	ContentFilterError  struct{ ProviderError }
	ContextLengthError  struct{ ProviderError }
	QuotaExceededError  struct{ ProviderError }
)

// Failures that happen without a provider response.
type (
	RequestTimeoutError struct{ SDKError }
	AbortError          struct{ SDKError }
	NetworkError        struct{ SDKError }
	ConfigurationError  struct{ SDKError }
)

var statusErrors = map[int]func(ProviderError) error{
	400: func(pe ProviderError) error { return &InvalidRequestError{pe} },
	401: func(pe ProviderError) error { return &AuthenticationError{pe} },
	402: func(pe ProviderError) error { return &QuotaExceededError{pe} },
	403: func(pe ProviderError) error { return &AccessDeniedError{pe} },
	404: func(pe ProviderError) error { return &NotFoundError{pe} },
	408: func(pe ProviderError) error { return &RequestTimeoutError{pe.SDKError} },
	413: func(pe ProviderError) error { return &ContextLengthError{pe} },
	422: func(pe ProviderError) error { return &InvalidRequestError{pe} },
	429: func(pe ProviderError) error { return &RateLimitError{pe} },
	500: func(pe ProviderError) error { return &ServerError{pe} },
	502: func(pe ProviderError) error { return &ServerError{pe} },
	503: func(pe ProviderError) error { return &ServerError{pe} },
	504: func(pe ProviderError) error { return &ServerError{pe} },
	529: func(pe ProviderError) error { return &ServerError{pe} }, // anthropic overloaded
}

// ErrorFromStatusCode maps an HTTP status to its typed error. Unlisted
// statuses yield a plain ProviderError, retryable for 5xx.
func ErrorFromStatusCode(statusCode int, message, provider, errorCode string, retryAfter *float64) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message},
		Provider:   provider,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		RetryAfter: retryAfter,
		Retryable:  statusCode == 429 || statusCode >= 500,
	}
	if build, ok := statusErrors[statusCode]; ok {
		return build(pe)
	}
	return &pe
}

// errorFromTransport classifies an error that happened before any HTTP
// status was received: cancellation, deadline, or a network fault.
func errorFromTransport(ctx context.Context, provider string, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &AbortError{SDKError{Message: provider + " request cancelled", Cause: err}}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RequestTimeoutError{SDKError{Message: provider + " request timed out", Cause: err}}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &NetworkError{SDKError{Message: provider + " network error", Cause: err}}
	}
	return &SDKError{Message: provider + " request failed", Cause: err}
}

// IsRetryable reports whether err is a transient failure worth retrying.
// Aborts and configuration problems never are; rate limits, 5xx, network
// faults and timeouts always are; other provider errors follow their
// Retryable flag.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []interface{}{new(*AbortError), new(*ConfigurationError)} {
		if errors.As(err, target) {
			return false
		}
	}
	for _, target := range []interface{}{
		new(*RateLimitError), new(*ServerError), new(*NetworkError), new(*RequestTimeoutError),
	} {
		if errors.As(err, target) {
			return true
		}
	}
	if pe, ok := err.(*ProviderError); ok {
		return pe.Retryable
	}
	return false
}
