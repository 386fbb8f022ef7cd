package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool parameter limits to prevent resource exhaustion.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// ToolRegistry manages available tools with thread-safe registration and
// lookup. Tool input is validated against the tool's JSON Schema before
// execution; invalid input becomes an error result, never a crash.
type ToolRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewToolRegistry creates a new empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry by its name, replacing any
// existing tool with the same name. A schema that fails to compile is
// recorded as absent; the tool still runs, just without validation.
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	if compiled, err := jsonschema.CompileString(tool.Name()+".schema.json", string(tool.Schema())); err == nil {
		r.schemas[tool.Name()] = compiled
	} else {
		delete(r.schemas, tool.Name())
	}
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Definitions returns provider-facing definitions for all registered
// tools, sorted by name for stable prompts.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs a tool by name with the given JSON parameters. Lookup
// failures and invalid parameters come back as error outputs so the model
// can recover; only infrastructure failures return a Go error.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolOutput, error) {
	if len(name) > MaxToolNameLength {
		return &ToolOutput{
			Content: fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength),
			IsError: true,
		}, nil
	}
	if len(params) > MaxToolParamsSize {
		return &ToolOutput{
			Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize),
			IsError: true,
		}, nil
	}

	tool, ok := r.Get(name)
	if !ok {
		return &ToolOutput{
			Content: fmt.Sprintf("unknown tool: %s", name),
			IsError: true,
		}, nil
	}

	if schema := r.schemaFor(name); schema != nil && len(params) > 0 {
		var value any
		if err := json.Unmarshal(params, &value); err != nil {
			return &ToolOutput{
				Content: fmt.Sprintf("invalid tool parameters: %v", err),
				IsError: true,
			}, nil
		}
		if err := schema.Validate(value); err != nil {
			return &ToolOutput{
				Content: fmt.Sprintf("tool parameters failed validation: %v", err),
				IsError: true,
			}, nil
		}
	}

	return tool.Execute(ctx, params)
}

func (r *ToolRegistry) schemaFor(name string) *jsonschema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name]
}
