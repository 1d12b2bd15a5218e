package unifiedllm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter.
// It backs providers that have no native adapter. gollm takes a single
// prompt, so the transcript is flattened and tool calls are recovered from
// JSON embedded in the reply.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

func WithGollmAPIKey(key string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.apiKey = key }
}

func WithGollmModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.model = model }
}

func WithGollmMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.maxTokens = n }
}

// WithGollmOptions passes extra options straight to gollm.NewLLM.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmAdapter creates a new GollmAdapter for the given provider.
// If no API key is given, gollm reads it from the provider's environment variable.
func NewGollmAdapter(provider string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{
		maxTokens:   4000,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("a model is required for provider %q", provider),
		}}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(cfg.model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries belong to RetryMiddleware
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("failed to create gollm LLM for provider %s", provider),
			Cause:   err,
		}}
	}

	return &GollmAdapter{provider: provider, llm: llm, model: cfg.model}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM instance.
func NewGollmAdapterFromLLM(provider string, llm gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, llm: llm}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)
	a.applyRequestOptions(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errorFromTransport(ctx, a.provider, err)
		}
		return nil, a.translateError(err)
	}
	return a.buildResponse(req, text), nil
}

// flattenMessages renders a transcript as labelled lines for gollm's single
// prompt. Tool calls keep their ids so the model can match later results.
func flattenMessages(msgs []Message) string {
	var lines []string
	for _, msg := range msgs {
		if msg.Role == RoleUser {
			lines = append(lines, msg.TextContent())
			continue
		}
		for _, part := range msg.Content {
			if line := flattenPart(msg.Role, part); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func flattenPart(role Role, part ContentPart) string {
	switch {
	case role == RoleAssistant && part.Kind == ContentText && part.Text != "":
		return "[Assistant]: " + part.Text
	case role == RoleAssistant && part.Kind == ContentToolCall && part.ToolCall != nil:
		tc := part.ToolCall
		return fmt.Sprintf("[Tool Call %s]: %s(%s)", tc.ID, tc.Name, tc.Arguments)
	case role == RoleTool && part.Kind == ContentToolResult && part.ToolResult != nil:
		label := "Tool Result"
		if part.ToolResult.IsError {
			label = "Tool Error"
		}
		return fmt.Sprintf("[%s %s]: %s", label, part.ToolResult.ToolCallID, part.ToolResult.Content)
	}
	return ""
}

func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	promptText := flattenMessages(req.Messages)
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if req.System != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(req.System, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.ToolDefs) > 0 {
		tools := make([]gollm.Tool, 0, len(req.ToolDefs))
		for _, t := range req.ToolDefs {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools), gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse turns gollm's reply text into a response: leading prose
// first, then any embedded tool calls. gollm reports no usage, so token
// counts are estimated at four characters per token.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	resp := &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        req.Model,
		Provider:     a.provider,
		Message:      Message{Role: RoleAssistant},
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
	}
	if resp.Model == "" {
		resp.Model = a.model
	}

	calls, prose := parseToolCalls(text)
	if prose != "" {
		resp.Message.Content = append(resp.Message.Content, TextPart(prose))
	}
	for _, call := range calls {
		resp.Message.Content = append(resp.Message.Content, ToolCallPart(call.ID, call.Name, call.Arguments))
	}
	if len(calls) > 0 {
		resp.FinishReason = FinishReason{Reason: "tool_calls", Raw: "tool_calls"}
	}

	in, out := estimateTokens(req), len(text)/4
	resp.Usage = Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
	return resp
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseToolCalls extracts tool calls embedded in reply text, either as
// {"tool_calls": [...]} or a bare [{"name": ...}] array. It returns the
// calls and the text preceding the JSON.
func parseToolCalls(text string) ([]ToolCallData, string) {
	var raw []rawToolCall

	start := strings.Index(text, `{"tool_calls"`)
	if start != -1 {
		var wrapped struct {
			ToolCalls []rawToolCall `json:"tool_calls"`
		}
		if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&wrapped); err == nil {
			raw = wrapped.ToolCalls
		}
	} else if start = strings.Index(text, `[{"name"`); start != -1 {
		_ = json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw)
	}
	if len(raw) == 0 {
		return nil, text
	}

	calls := make([]ToolCallData, 0, len(raw))
	for _, rc := range raw {
		args := rc.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		calls = append(calls, ToolCallData{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: args,
		})
	}
	return calls, strings.TrimSpace(text[:start])
}

// gollmErrorPatterns maps substrings of gollm's error text to the HTTP
// status they stand for. gollm only surfaces strings. First match wins.
var gollmErrorPatterns = []struct {
	status   int
	patterns []string
}{
	{401, []string{"401", "unauthorized", "invalid api key"}},
	{403, []string{"403", "forbidden"}},
	{404, []string{"404", "not found"}},
	{429, []string{"429", "rate limit"}},
	{413, []string{"context length", "too many tokens"}},
	{500, []string{"500", "internal server"}},
	{408, []string{"timeout"}},
}

// translateError classifies a gollm error into the unified hierarchy.
func (a *GollmAdapter) translateError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, p := range gollmErrorPatterns {
		for _, pattern := range p.patterns {
			if strings.Contains(lower, pattern) {
				return ErrorFromStatusCode(p.status, msg, a.provider, "", nil)
			}
		}
	}
	return &ProviderError{SDKError: SDKError{Message: msg, Cause: err}, Provider: a.provider}
}

func estimateTokens(req Request) int {
	total := len(req.System) / 4
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			switch part.Kind {
			case ContentText:
				total += len(part.Text) / 4
			case ContentToolResult:
				total += len(part.ToolResult.Content) / 4
			}
		}
	}
	if total == 0 {
		total = 10
	}
	return total
}
