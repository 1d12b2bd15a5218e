package unifiedllm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIAdapterMissingKey(t *testing.T) {
	_, err := NewOpenAIAdapter("", "", 0).Complete(context.Background(), Request{Model: "gpt-4o"})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestToOpenAIMessagesSplitsToolResults(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		UserMessage("hi"),
		{Role: RoleAssistant, Content: []ContentPart{
			TextPart("checking"),
			ToolCallPart("a", "bash", json.RawMessage(`{"command":"ls"}`)),
			ToolCallPart("b", "list_files", json.RawMessage(`{}`)),
		}},
		ToolResultsMessage(
			ToolResultData{ToolCallID: "a", Content: "x"},
			ToolResultData{ToolCallID: "b", Content: "Error: nope", IsError: true},
		),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "checking", msgs[1].Content)
	require.Len(t, msgs[1].ToolCalls, 2)
	assert.Equal(t, `{"command":"ls"}`, msgs[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "a", msgs[2].ToolCallID)
	assert.Equal(t, "b", msgs[3].ToolCallID)
	assert.Equal(t, "tool", msgs[3].Role)
}

func TestOpenAIAdapterRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		msgs := body["messages"].([]interface{})
		assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
		assert.Len(t, body["tools"], 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "", "tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "bash", "arguments": "{\"command\":\"ls\"}"}}
				]},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
		}`)
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("k", srv.URL+"/v1", 1000)
	resp, err := adapter.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		System:   "sys",
		Messages: []Message{UserMessage("list")},
		ToolDefs: []ToolDefinition{{Name: "bash", Parameters: map[string]interface{}{"type": "object"}}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Message.Content, 1)
	call := resp.Message.Content[0].ToolCall
	require.NotNil(t, call)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "bash", call.Name)
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestOpenAIAdapterRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "slow down", "type": "requests", "code": "rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIAdapter("k", srv.URL+"/v1", 0).Complete(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{UserMessage("hi")},
	})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "rate_limit_exceeded", rl.ErrorCode)
	assert.True(t, IsRetryable(err))
}
