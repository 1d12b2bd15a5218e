package unifiedllm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTextContent(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []ContentPart{
		TextPart("Hello, "),
		ToolCallPart("c1", "bash", json.RawMessage(`{"command":"ls"}`)),
		TextPart("world"),
	}}
	assert.Equal(t, "Hello, world", msg.TextContent())
}

func TestMessageToolCallsKeepOrder(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []ContentPart{
		ToolCallPart("c1", "bash", nil),
		TextPart("between"),
		ToolCallPart("c2", "list_files", nil),
	}}
	calls := msg.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "c1", calls[0].ID)
	assert.Equal(t, "c2", calls[1].ID)
}

func TestToolResultsMessage(t *testing.T) {
	msg := ToolResultsMessage(
		ToolResultData{ToolCallID: "a", Content: "ok"},
		ToolResultData{ToolCallID: "b", Content: "Error: bad", IsError: true},
	)
	assert.Equal(t, RoleTool, msg.Role)
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "a", msg.Content[0].ToolResult.ToolCallID)
	assert.True(t, msg.Content[1].ToolResult.IsError)
}

func TestUsageAdd(t *testing.T) {
	total := Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}.Add(Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30})
	assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}, total)
}
