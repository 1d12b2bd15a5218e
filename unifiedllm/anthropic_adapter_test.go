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

func TestAnthropicAdapterMissingKey(t *testing.T) {
	adapter := NewAnthropicAdapter("")
	_, err := adapter.Complete(context.Background(), Request{Model: DefaultModel})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestAnthropicAdapterRoundTrip(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [
				{"type": "text", "text": "I'll create it."},
				{"type": "tool_use", "id": "tu_1", "name": "edit_file", "input": {"path": "hello.txt", "old_str": "", "new_str": "hi"}},
				{"type": "text", "text": "Then check."}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`)
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter("test-key", WithAnthropicBaseURL(srv.URL), WithAnthropicMaxTokens(4000))
	resp, err := adapter.Complete(context.Background(), Request{
		Model:  "sonnet",
		System: "be helpful",
		Messages: []Message{
			UserMessage("make hello.txt"),
			{Role: RoleAssistant, Content: []ContentPart{
				ToolCallPart("tu_0", "list_files", json.RawMessage(`{}`)),
			}},
			ToolResultsMessage(ToolResultData{ToolCallID: "tu_0", Content: "Files in .:\n"}),
		},
		ToolDefs: []ToolDefinition{{
			Name:        "edit_file",
			Description: "Edit a file",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
				"required":   []string{"path"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, captured["model"])
	assert.EqualValues(t, 4000, captured["max_tokens"])
	msgs := captured["messages"].([]interface{})
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].(map[string]interface{})["role"])
	toolMsg := msgs[2].(map[string]interface{})
	assert.Equal(t, "user", toolMsg["role"])
	block := toolMsg["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tool_result", block["type"])
	assert.Equal(t, "tu_0", block["tool_use_id"])
	tools := captured["tools"].([]interface{})
	require.Len(t, tools, 1)
	assert.Equal(t, "edit_file", tools[0].(map[string]interface{})["name"])

	require.Len(t, resp.Message.Content, 3)
	assert.Equal(t, ContentText, resp.Message.Content[0].Kind)
	assert.Equal(t, ContentToolCall, resp.Message.Content[1].Kind)
	assert.Equal(t, "tu_1", resp.Message.Content[1].ToolCall.ID)
	assert.JSONEq(t, `{"path": "hello.txt", "old_str": "", "new_str": "hi"}`, string(resp.Message.Content[1].ToolCall.Arguments))
	assert.Equal(t, "Then check.", resp.Message.Content[2].Text)
	assert.Equal(t, "tool_calls", resp.FinishReason.Reason)
	assert.Equal(t, 19, resp.Usage.TotalTokens)
}

func TestAnthropicAdapterStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter("bad-key", WithAnthropicBaseURL(srv.URL))
	_, err := adapter.Complete(context.Background(), Request{
		Model:    DefaultModel,
		Messages: []Message{UserMessage("hi")},
	})

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
	assert.False(t, IsRetryable(err))
}
