package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/martinemde/codeagent/agentloop"
	"github.com/stretchr/testify/assert"
)

func TestNarratorPlain(t *testing.T) {
	var out bytes.Buffer
	n := NewNarrator(&out, false, 100)

	n.Handle(agentloop.Event{Kind: agentloop.EventToolCallStart, Data: map[string]interface{}{
		"name": "bash", "input": `{"command":"ls"}`,
	}})
	n.Handle(agentloop.Event{Kind: agentloop.EventToolCallEnd, Data: map[string]interface{}{
		"success": true, "result": strings.Repeat("x", 150),
	}})
	n.Handle(agentloop.Event{Kind: agentloop.EventToolCallEnd, Data: map[string]interface{}{
		"success": false, "error": "Unknown tool: nope",
	}})
	n.Handle(agentloop.Event{Kind: agentloop.EventRoundStart})

	assert.Equal(t,
		"🔧 Tool: bash({\"command\":\"ls\"})\n"+
			"✅ Success: "+strings.Repeat("x", 100)+"...\n"+
			"❌ Error: Unknown tool: nope\n",
		out.String())
}

func TestNarratorColor(t *testing.T) {
	var out bytes.Buffer
	NewNarrator(&out, true, 100).Handle(agentloop.Event{Kind: agentloop.EventToolCallEnd, Data: map[string]interface{}{
		"success": false, "error": "bad",
	}})
	assert.Equal(t, "\x1b[31m❌ Error:\x1b[0m bad\n", out.String())
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, ColorEnabled("always", &buf))
	assert.False(t, ColorEnabled("never", &buf))
	assert.False(t, ColorEnabled("auto", &buf), "buffers are never terminals")
}
