package unifiedllm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdapter is a test double for ProviderAdapter.
type mockAdapter struct {
	name     string
	response *Response
	err      error
	requests []Request
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name: name,
		response: &Response{
			ID:           "test_resp",
			Model:        "test-model",
			Provider:     name,
			Message:      Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}},
			FinishReason: FinishReason{Reason: "stop"},
			Usage:        Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		},
	}
}

func TestClientComplete(t *testing.T) {
	mock := newMockAdapter("test-provider", "Hello!")
	client := NewClient(WithProvider("test-provider", mock))

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Text())
	require.Len(t, mock.requests, 1)
	assert.Equal(t, "test-provider", mock.requests[0].Provider)
}

func TestClientProviderRouting(t *testing.T) {
	openai := newMockAdapter("openai", "OpenAI response")
	anthropic := newMockAdapter("anthropic", "Anthropic response")

	client := NewClient(
		WithProvider("openai", openai),
		WithProvider("anthropic", anthropic),
		WithDefaultProvider("anthropic"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "whatever",
		Provider: "openai",
		Messages: []Message{UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "OpenAI response", resp.Text())

	// Catalog lookup wins over the default provider.
	resp, err = client.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "OpenAI response", resp.Text())

	resp, err = client.Complete(context.Background(), Request{
		Model:    "some-unknown-model",
		Messages: []Message{UserMessage("Hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Anthropic response", resp.Text())
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{Model: "test-model"})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClientUnregisteredProvider(t *testing.T) {
	client := NewClient(WithProvider("openai", newMockAdapter("openai", "x")))
	_, err := client.Complete(context.Background(), Request{Provider: "gemini"})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), `"gemini"`)
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req Request) (*Response, error) {
				order = append(order, name+":before")
				resp, err := next(ctx, req)
				order = append(order, name+":after")
				return resp, err
			}
		}
	}

	client := NewClient(
		WithProvider("p", newMockAdapter("p", "ok")),
		WithMiddleware(mw("first"), mw("second")),
	)
	_, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:before", "second:before", "second:after", "first:after"}, order)
}

func TestLoggingMiddlewarePassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	mock := &mockAdapter{name: "p", err: boom}
	client := NewClient(WithProvider("p", mock), WithMiddleware(LoggingMiddleware()))

	_, err := client.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

type closingAdapter struct {
	mockAdapter
	closed bool
}

func (c *closingAdapter) Close() error {
	c.closed = true
	return nil
}

func TestClientClose(t *testing.T) {
	a := &closingAdapter{mockAdapter: mockAdapter{name: "a"}}
	client := NewClient(WithProvider("a", a), WithProvider("b", newMockAdapter("b", "x")))
	assert.Equal(t, []string{"a", "b"}, client.Providers())
	require.NoError(t, client.Close())
	assert.True(t, a.closed)
}
