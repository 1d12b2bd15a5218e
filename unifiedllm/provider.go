package unifiedllm

import "context"

// ProviderAdapter sends one request to one backend.
type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}

// HandlerFunc completes a request. The innermost handler is the adapter.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a HandlerFunc. Chain(h, m1, m2) runs m1, then m2, then h.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares around handler.
func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
