package agent

import (
	"context"
	"encoding/json"
)

// Tool is an executable capability exposed to the model.
type Tool interface {
	// Name returns the tool name for LLM function calling.
	Name() string

	// Description returns a natural language description of what the
	// tool does.
	Description() string

	// Schema returns the JSON Schema defining the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with the given JSON parameters.
	Execute(ctx context.Context, params json.RawMessage) (*ToolOutput, error)
}

// ToolOutput is the result of a tool execution. IsError marks failures
// that should be reported back to the model rather than aborting the run.
type ToolOutput struct {
	Content string
	IsError bool
}
