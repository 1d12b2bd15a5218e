package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text string `json:"text" jsonschema_description:"Text to echo"`
}

func echoTool(calls *int32) RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{Name: "echo", Description: "Echo text", InputSchema: SchemaFor(&echoInput{})},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			if calls != nil {
				atomic.AddInt32(calls, 1)
			}
			var in echoInput
			if err := decodeInput(input, &in); err != nil {
				return "", err
			}
			return in.Text, nil
		},
	}
}

func funcTool(name string, fn func() (string, error)) RegisteredTool {
	return RegisteredTool{
		Spec: ToolSpec{Name: name, Description: name},
		Executor: func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error) {
			return fn()
		},
	}
}

func TestRegistryCatalogOrder(t *testing.T) {
	reg, err := NewToolRegistry(nil,
		funcTool("b", func() (string, error) { return "", nil }),
		funcTool("a", func() (string, error) { return "", nil }),
		funcTool("c", func() (string, error) { return "", nil }),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, reg.Names())
	catalog := reg.Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, "b", catalog[0].Name)
	assert.NotNil(t, catalog[0].InputSchema, "missing schema defaults to an object schema")
}

func TestRegistryRejectsBadTools(t *testing.T) {
	ok := func() (string, error) { return "", nil }

	_, err := NewToolRegistry(nil, funcTool("x", ok), funcTool("x", ok))
	assert.ErrorContains(t, err, "duplicate tool")

	_, err = NewToolRegistry(nil, funcTool("", ok))
	assert.Error(t, err)

	_, err = NewToolRegistry(nil, RegisteredTool{Spec: ToolSpec{Name: "nil"}})
	assert.ErrorContains(t, err, "no executor")

	bad := funcTool("bad", ok)
	bad.Spec.InputSchema = map[string]interface{}{"type": 12}
	_, err = NewToolRegistry(nil, bad)
	assert.ErrorContains(t, err, "invalid input schema")
}

func TestRegistryUnknownToolIsIdempotent(t *testing.T) {
	var calls int32
	reg, err := NewToolRegistry(nil, echoTool(&calls))
	require.NoError(t, err)

	want := ToolOutcome{Success: false, Error: "Unknown tool: unknown_tool"}
	for i := 0; i < 3; i++ {
		got := reg.Execute(context.Background(), "unknown_tool", json.RawMessage(`{}`))
		assert.Equal(t, want, got)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestRegistryExecuteOutcomes(t *testing.T) {
	reg, err := NewToolRegistry(nil,
		echoTool(nil),
		funcTool("fails", func() (string, error) { return "", errors.New("disk on fire") }),
		funcTool("panics", func() (string, error) { panic("kaboom") }),
	)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, Succeeded("hi"), reg.Execute(ctx, "echo", json.RawMessage(`{"text":"hi"}`)))
	assert.Equal(t, Failed("disk on fire"), reg.Execute(ctx, "fails", nil))

	out := reg.Execute(ctx, "panics", nil)
	assert.False(t, out.Success)
	assert.Equal(t, "tool panics panicked: kaboom", out.Error)
}

func TestRegistryValidatesInput(t *testing.T) {
	var calls int32
	reg, err := NewToolRegistry(nil, echoTool(&calls))
	require.NoError(t, err)
	ctx := context.Background()

	for _, input := range []string{`{}`, `{"text":5}`, `not json`, `{"text":"a","extra":1}`} {
		out := reg.Execute(ctx, "echo", json.RawMessage(input))
		assert.False(t, out.Success, input)
		assert.Contains(t, out.Error, "Invalid input for echo:", input)
	}
	assert.Zero(t, atomic.LoadInt32(&calls), "invalid input must not reach the executor")
}

func TestSchemaForMarksRequiredFields(t *testing.T) {
	schema := SchemaFor(&codeSearchInput{})
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "pattern")
	assert.Contains(t, props, "file_type")

	required, ok := schema["required"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"pattern"}, required)
}

func TestToolDefinitions(t *testing.T) {
	defs := ToolDefinitions([]ToolSpec{{Name: "a", Description: "A", InputSchema: map[string]interface{}{"type": "object"}}})
	require.Len(t, defs, 1)
	assert.Equal(t, "a", defs[0].Name)
	assert.Equal(t, "A", defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
}
