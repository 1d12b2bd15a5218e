package unifiedllm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Client routes requests to provider adapters through a middleware chain.
// It is configured once at construction and safe for concurrent use.
type Client struct {
	adapters    map[string]ProviderAdapter
	fallback    string
	middlewares []Middleware
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.adapters[name] = adapter }
}

// WithDefaultProvider names the adapter used when neither the request nor
// the model catalog picks one.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.fallback = name }
}

// WithMiddleware appends middlewares; the first one added runs outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middlewares = append(c.middlewares, mw...) }
}

// NewClient creates a Client. With a single adapter and no default, that
// adapter becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{adapters: map[string]ProviderAdapter{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.fallback = name
		}
	}
	return c
}

// Providers returns the registered provider names, sorted.
func (c *Client) Providers() []string {
	names := make([]string, 0, len(c.adapters))
	for name := range c.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// route picks the adapter for req: an explicit provider, then the model's
// catalog entry when that provider is registered, then the default.
func (c *Client) route(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil && c.adapters[info.Provider] != nil {
			name = info.Provider
		} else {
			name = c.fallback
		}
	}
	if name == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "no provider requested and no default configured"}}
	}
	adapter, ok := c.adapters[name]
	if !ok {
		return nil, &ConfigurationError{SDKError: SDKError{Message: fmt.Sprintf("provider %q is not registered", name)}}
	}
	return adapter, nil
}

// Complete sends req to its provider and waits for the full response.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.route(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}
	return Chain(adapter.Complete, c.middlewares...)(ctx, req)
}

// Close closes every adapter that holds resources and returns the first
// failure.
func (c *Client) Close() error {
	var first error
	for _, name := range c.Providers() {
		closer, ok := c.adapters[name].(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoggingMiddleware logs every provider call at debug level.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			ev := log.Debug().
				Str("provider", req.Provider).
				Str("model", req.Model).
				Int("messages", len(req.Messages)).
				Int("tools", len(req.ToolDefs)).
				Dur("elapsed", time.Since(start))
			if err != nil {
				ev.Err(err).Msg("llm request failed")
				return nil, err
			}
			ev.Str("finish_reason", resp.FinishReason.Reason).
				Int("input_tokens", resp.Usage.InputTokens).
				Int("output_tokens", resp.Usage.OutputTokens).
				Msg("llm request completed")
			return resp, nil
		}
	}
}
