package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter talks to the Anthropic Messages API directly. Unlike the
// gollm fallback it keeps text and tool_use blocks in the order received.
type AnthropicAdapter struct {
	client    anthropic.Client
	apiKey    string
	maxTokens int
}

// AnthropicOption configures an AnthropicAdapter.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// WithAnthropicBaseURL points the adapter at a different endpoint.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) { c.baseURL = url }
}

// WithAnthropicMaxTokens sets the default max_tokens.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(c *anthropicConfig) { c.maxTokens = n }
}

// WithAnthropicHTTPClient overrides the HTTP client.
func WithAnthropicHTTPClient(hc *http.Client) AnthropicOption {
	return func(c *anthropicConfig) { c.httpClient = hc }
}

// NewAnthropicAdapter creates an adapter. An empty apiKey is accepted; the
// first Complete call then fails with a ConfigurationError.
func NewAnthropicAdapter(apiKey string, opts ...AnthropicOption) *AnthropicAdapter {
	cfg := &anthropicConfig{maxTokens: 4000}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries belong to RetryMiddleware
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &AnthropicAdapter{
		client:    anthropic.NewClient(reqOpts...),
		apiKey:    apiKey,
		maxTokens: cfg.maxTokens,
	}
}

// Name returns the provider identifier.
func (a *AnthropicAdapter) Name() string { return "anthropic" }

// Complete sends one Messages API request.
func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if a.apiKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "anthropic API key is not set (ANTHROPIC_API_KEY)",
		}}
	}

	params, err := a.buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, translateAnthropicError(ctx, err)
	}
	return fromAnthropicMessage(msg), nil
}

func (a *AnthropicAdapter) buildParams(req Request) (anthropic.MessageNewParams, error) {
	maxTokens := a.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	msgs, err := toAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ResolveModel(req.Model)),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.StopSequence) > 0 {
		params.StopSequences = req.StopSequence
	}
	if len(req.ToolDefs) > 0 {
		params.Tools = toAnthropicTools(req.ToolDefs)
	}
	return params, nil
}

// toAnthropicMessages converts the unified transcript. Tool result
// messages become a single user message so all results of a round travel
// together.
func toAnthropicMessages(msgs []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range msg.Content {
			switch part.Kind {
			case ContentText:
				if part.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(part.Text))
				}
			case ContentToolCall:
				input := part.ToolCall.Arguments
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(part.ToolCall.ID, input, part.ToolCall.Name))
			case ContentToolResult:
				r := part.ToolResult
				blocks = append(blocks, anthropic.NewToolResultBlock(r.ToolCallID, r.Content, r.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		switch msg.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case RoleUser, RoleTool:
			out = append(out, anthropic.NewUserMessage(blocks...))
		default:
			return nil, &InvalidRequestError{ProviderError: ProviderError{
				SDKError: SDKError{Message: "unsupported message role " + string(msg.Role)},
				Provider: "anthropic",
			}}
		}
	}
	return out, nil
}

func toAnthropicTools(defs []ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Properties: def.Parameters["properties"],
		}
		if req, ok := def.Parameters["required"].([]string); ok {
			schema.Required = req
		} else if req, ok := def.Parameters["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		tool := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: schema,
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func fromAnthropicMessage(msg *anthropic.Message) *Response {
	parts := make([]ContentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			parts = append(parts, TextPart(block.Text))
		case "tool_use":
			input := block.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			parts = append(parts, ToolCallPart(block.ID, block.Name, input))
		}
	}

	reason := "other"
	switch msg.StopReason {
	case "end_turn", "stop_sequence":
		reason = "stop"
	case "max_tokens":
		reason = "length"
	case "tool_use":
		reason = "tool_calls"
	case "refusal":
		reason = "content_filter"
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return &Response{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Provider:     "anthropic",
		Message:      Message{Role: RoleAssistant, Content: parts},
		FinishReason: FinishReason{Reason: reason, Raw: string(msg.StopReason)},
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

func translateAnthropicError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		var retryAfter *float64
		if apiErr.Response != nil {
			if v, perr := strconv.ParseFloat(apiErr.Response.Header.Get("retry-after"), 64); perr == nil {
				retryAfter = &v
			}
		}
		mapped := ErrorFromStatusCode(apiErr.StatusCode, apiErr.Error(), "anthropic", "", retryAfter)
		return mapped
	}
	return errorFromTransport(ctx, "anthropic", err)
}
