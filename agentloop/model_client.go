package agentloop

import (
	"context"
	"fmt"

	"github.com/martinemde/codeagent/unifiedllm"
)

// ModelClient is the boundary to the LLM backend. Send makes exactly one
// attempt and returns the model's turn with its blocks in received order.
// Any failure is reported as a *TransportError.
type ModelClient interface {
	Send(ctx context.Context, transcript []Turn, systemPrompt string, catalog []ToolSpec) (AssistantTurn, error)
}

// TransportError reports that the model backend was unreachable, rejected
// the request, or answered with something unusable. It is terminal for the
// current chat call.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// LLMModelClient sends transcripts through a unifiedllm.Client.
type LLMModelClient struct {
	client    *unifiedllm.Client
	model     string
	provider  string
	maxTokens int
}

// LLMModelClientOption configures an LLMModelClient.
type LLMModelClientOption func(*LLMModelClient)

// WithProvider pins requests to a registered provider instead of routing
// by model name.
func WithProvider(name string) LLMModelClientOption {
	return func(c *LLMModelClient) { c.provider = name }
}

// WithMaxTokens sets the response token budget. Zero leaves it to the adapter.
func WithMaxTokens(n int) LLMModelClientOption {
	return func(c *LLMModelClient) { c.maxTokens = n }
}

// NewLLMModelClient creates a ModelClient for the given model.
func NewLLMModelClient(client *unifiedllm.Client, model string, opts ...LLMModelClientOption) *LLMModelClient {
	c := &LLMModelClient{client: client, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model id.
func (c *LLMModelClient) Model() string { return c.model }

// Send implements ModelClient.
func (c *LLMModelClient) Send(ctx context.Context, transcript []Turn, systemPrompt string, catalog []ToolSpec) (AssistantTurn, error) {
	req := unifiedllm.Request{
		Model:    c.model,
		Provider: c.provider,
		System:   systemPrompt,
		Messages: ConvertHistoryToMessages(transcript),
		ToolDefs: ToolDefinitions(catalog),
	}
	if c.maxTokens > 0 {
		req.MaxTokens = unifiedllm.IntPtr(c.maxTokens)
	}

	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		return AssistantTurn{}, &TransportError{Err: err}
	}
	if resp == nil {
		return AssistantTurn{}, &TransportError{Err: fmt.Errorf("empty response from provider")}
	}

	turn := assistantTurnFromMessage(resp)
	if err := checkRequestIDs(turn); err != nil {
		return AssistantTurn{}, &TransportError{Err: err}
	}
	return turn, nil
}

// checkRequestIDs rejects replies whose tool requests cannot be answered
// unambiguously.
func checkRequestIDs(turn AssistantTurn) error {
	seen := make(map[string]bool)
	for _, req := range turn.ToolRequests() {
		if req.ID == "" {
			return fmt.Errorf("tool request %q has no id", req.Name)
		}
		if seen[req.ID] {
			return fmt.Errorf("duplicate tool request id %q", req.ID)
		}
		seen[req.ID] = true
	}
	return nil
}
