// Package unifiedllm is a small provider-agnostic LLM client used by the
// agent loop to reach a model.
//
// A Client routes each Request to a registered ProviderAdapter and runs it
// through a middleware chain (LoggingMiddleware, RetryMiddleware). Three
// adapters are provided:
//
//   - AnthropicAdapter: the Anthropic Messages API via anthropic-sdk-go.
//     Content blocks keep the order the model produced them in.
//   - OpenAIAdapter: OpenAI-compatible chat completions via go-openai.
//   - GollmAdapter: any other provider gollm supports. The transcript is
//     flattened into one prompt and tool calls are parsed from the reply.
//
// Failures are reported through a typed hierarchy rooted at SDKError;
// IsRetryable classifies them.
//
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("anthropic", unifiedllm.NewAnthropicAdapter(key)),
//	    unifiedllm.WithMiddleware(unifiedllm.LoggingMiddleware()),
//	)
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Model:    unifiedllm.DefaultModel,
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
package unifiedllm
