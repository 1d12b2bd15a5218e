package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/martinemde/codeagent/unifiedllm"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// ToolSpec describes a tool advertised to the model.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolOutcome is the uniform result of running a tool. Result is
// meaningful when Success is true, Error otherwise.
type ToolOutcome struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful outcome.
func Succeeded(result string) ToolOutcome {
	return ToolOutcome{Success: true, Result: result}
}

// Failed builds a failed outcome.
func Failed(msg string) ToolOutcome {
	return ToolOutcome{Success: false, Error: msg}
}

// ToolExecutor runs one tool call. A returned error becomes a failed
// outcome carrying the error's message.
type ToolExecutor func(ctx context.Context, input json.RawMessage, env ExecutionEnvironment) (string, error)

// RegisteredTool pairs a tool spec with its executor.
type RegisteredTool struct {
	Spec     ToolSpec
	Executor ToolExecutor
}

type boundTool struct {
	RegisteredTool
	schema *gojsonschema.Schema
}

// ToolRegistry is an immutable catalog of tools bound to one execution
// environment. It is safe for concurrent use.
type ToolRegistry struct {
	env   ExecutionEnvironment
	order []string
	tools map[string]*boundTool
}

// NewToolRegistry builds a registry. Catalog order follows the order of
// tools; duplicate names and invalid schemas are rejected.
func NewToolRegistry(env ExecutionEnvironment, tools ...RegisteredTool) (*ToolRegistry, error) {
	r := &ToolRegistry{
		env:   env,
		order: make([]string, 0, len(tools)),
		tools: make(map[string]*boundTool, len(tools)),
	}
	for _, tool := range tools {
		name := tool.Spec.Name
		if name == "" {
			return nil, errors.New("tool name must not be empty")
		}
		if _, exists := r.tools[name]; exists {
			return nil, errors.Errorf("duplicate tool %q", name)
		}
		if tool.Executor == nil {
			return nil, errors.Errorf("tool %q has no executor", name)
		}
		if tool.Spec.InputSchema == nil {
			tool.Spec.InputSchema = map[string]interface{}{"type": "object"}
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.Spec.InputSchema))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid input schema for tool %q", name)
		}
		r.order = append(r.order, name)
		r.tools[name] = &boundTool{RegisteredTool: tool, schema: schema}
	}
	return r, nil
}

// Catalog returns the tool specs in registration order.
func (r *ToolRegistry) Catalog() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}

// Names returns tool names in registration order.
func (r *ToolRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of tools.
func (r *ToolRegistry) Len() int {
	return len(r.order)
}

// Environment returns the environment tools run in.
func (r *ToolRegistry) Environment() ExecutionEnvironment {
	return r.env
}

// Execute runs the named tool. It never panics and never returns an error:
// unknown tools, invalid input, executor errors and executor panics all
// come back as a failed ToolOutcome.
func (r *ToolRegistry) Execute(ctx context.Context, name string, input json.RawMessage) (outcome ToolOutcome) {
	tool, ok := r.tools[name]
	if !ok {
		return Failed("Unknown tool: " + name)
	}

	if len(strings.TrimSpace(string(input))) == 0 {
		input = json.RawMessage(`{}`)
	}

	if msg := validateInput(tool.schema, input); msg != "" {
		return Failed(fmt.Sprintf("Invalid input for %s: %s", name, msg))
	}

	defer func() {
		if rec := recover(); rec != nil {
			outcome = Failed(fmt.Sprintf("tool %s panicked: %v", name, rec))
		}
	}()

	result, err := tool.Executor(ctx, input, r.env)
	if err != nil {
		return Failed(err.Error())
	}
	return Succeeded(result)
}

func validateInput(schema *gojsonschema.Schema, input json.RawMessage) string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(input))
	if err != nil {
		return err.Error()
	}
	if result.Valid() {
		return ""
	}
	descs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		descs = append(descs, e.String())
	}
	return strings.Join(descs, "; ")
}

// ToolDefinitions converts specs to the form sent to the model.
func ToolDefinitions(specs []ToolSpec) []unifiedllm.ToolDefinition {
	defs := make([]unifiedllm.ToolDefinition, 0, len(specs))
	for _, s := range specs {
		defs = append(defs, unifiedllm.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.InputSchema,
		})
	}
	return defs
}

var schemaReflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

// SchemaFor reflects the JSON schema of a tool input struct. Fields without
// omitempty are required.
func SchemaFor(v interface{}) map[string]interface{} {
	schema := schemaReflector.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal schema for %T: %v", v, err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("unmarshal schema for %T: %v", v, err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]interface{}{}
	}
	return m
}

// decodeInput unmarshals validated tool input.
func decodeInput(input json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(input, v); err != nil {
		return errors.Wrap(err, "invalid tool arguments")
	}
	return nil
}
