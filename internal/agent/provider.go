package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/atelier/pkg/models"
)

// CompletionRequest describes one streaming model invocation.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []models.Message
	Tools     []ToolDefinition
	MaxTokens int
}

// ToolDefinition is the provider-facing description of a registered tool.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ToolCallFragment is one raw incremental tool call delta as received
// from the model, before any reassembly. Index correlates fragments of
// the same call when the id is absent mid-stream.
type ToolCallFragment struct {
	Index int
	ID    string
	Name  string
	Args  string
}

// CompletionChunk is one unit of a streaming model response. At most one
// payload field is set per chunk.
type CompletionChunk struct {
	// Text is an increment of assistant text.
	Text string

	// Fragment is a raw tool call delta (id/name on first appearance,
	// argument JSON fragments after).
	Fragment *ToolCallFragment

	// ToolCall is a completed call with fully parsed arguments.
	ToolCall *models.ToolCall

	// Done marks normal stream completion.
	Done bool

	// Err reports a stream failure. The channel closes after it.
	Err error
}

// Provider is a streaming LLM backend.
type Provider interface {
	// Name returns the stable lowercase provider identifier.
	Name() string

	// Complete streams a model response. The returned channel is closed
	// by the provider when the stream ends for any reason.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan CompletionChunk, error)
}
