package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter talks to OpenAI-compatible chat completion endpoints.
type OpenAIAdapter struct {
	client    *go_openai.Client
	apiKey    string
	maxTokens int
}

// NewOpenAIAdapter creates an adapter. baseURL may be empty for the public API.
func NewOpenAIAdapter(apiKey, baseURL string, maxTokens int) *OpenAIAdapter {
	cfg := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &OpenAIAdapter{
		client:    go_openai.NewClientWithConfig(cfg),
		apiKey:    apiKey,
		maxTokens: maxTokens,
	}
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string { return "openai" }

// Complete sends one chat completion request.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if a.apiKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "openai API key is not set (OPENAI_API_KEY)",
		}}
	}

	chatReq := a.buildRequest(req)
	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, translateOpenAIError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{
			SDKError: SDKError{Message: "response contained no choices"},
			Provider: "openai",
		}
	}
	return fromOpenAIResponse(resp), nil
}

func (a *OpenAIAdapter) buildRequest(req Request) go_openai.ChatCompletionRequest {
	maxTokens := a.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	var msgs []go_openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	msgs = append(msgs, toOpenAIMessages(req.Messages)...)

	chatReq := go_openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: maxTokens,
		Stop:      req.StopSequence,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	for _, def := range req.ToolDefs {
		chatReq.Tools = append(chatReq.Tools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return chatReq
}

// toOpenAIMessages converts the unified transcript. An assistant message
// carries its text and tool calls together; every tool result becomes its
// own tool-role message, in order.
func toOpenAIMessages(msgs []Message) []go_openai.ChatCompletionMessage {
	var out []go_openai.ChatCompletionMessage
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			out = append(out, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: msg.TextContent(),
			})
		case RoleAssistant:
			m := go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleAssistant,
				Content: msg.TextContent(),
			}
			for _, tc := range msg.ToolCalls() {
				m.ToolCalls = append(m.ToolCalls, go_openai.ToolCall{
					ID:   tc.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, m)
		case RoleTool:
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				out = append(out, go_openai.ChatCompletionMessage{
					Role:       go_openai.ChatMessageRoleTool,
					Content:    part.ToolResult.Content,
					ToolCallID: part.ToolResult.ToolCallID,
				})
			}
		}
	}
	return out
}

func fromOpenAIResponse(resp go_openai.ChatCompletionResponse) *Response {
	choice := resp.Choices[0]

	var parts []ContentPart
	if strings.TrimSpace(choice.Message.Content) != "" {
		parts = append(parts, TextPart(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(strings.TrimSpace(tc.Function.Arguments)) == 0 {
			args = json.RawMessage(`{}`)
		}
		parts = append(parts, ToolCallPart(tc.ID, tc.Function.Name, args))
	}

	reason := "other"
	switch choice.FinishReason {
	case go_openai.FinishReasonStop:
		reason = "stop"
	case go_openai.FinishReasonLength:
		reason = "length"
	case go_openai.FinishReasonToolCalls, go_openai.FinishReasonFunctionCall:
		reason = "tool_calls"
	case go_openai.FinishReasonContentFilter:
		reason = "content_filter"
	}

	return &Response{
		ID:           resp.ID,
		Model:        resp.Model,
		Provider:     "openai",
		Message:      Message{Role: RoleAssistant, Content: parts},
		FinishReason: FinishReason{Reason: reason, Raw: string(choice.FinishReason)},
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
}

func translateOpenAIError(ctx context.Context, err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return ErrorFromStatusCode(apiErr.HTTPStatusCode, apiErr.Message, "openai", code, nil)
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return ErrorFromStatusCode(reqErr.HTTPStatusCode, reqErr.Error(), "openai", "", nil)
	}
	return errorFromTransport(ctx, "openai", err)
}
