package agent

import "github.com/haasonsaas/atelier/pkg/models"

// Stream modes tag ModeChunk payloads. ModeValues marks a full-state
// snapshot; every other mode carries incremental message chunks.
const (
	ModeValues   = "values"
	ModeMessages = "messages"
)

// ModeChunk pairs a delivery-mode tag with its payload. The payload shape
// depends on the mode: a StateChunk for ModeValues, otherwise one or many
// raw message chunks.
type ModeChunk struct {
	Mode    string
	Payload any
}

// AssistantChunk is one increment of assistant output. A single chunk may
// carry text, tool call deltas, and raw argument fragments at once.
type AssistantChunk struct {
	Content        string
	ToolCalls      []ToolCallDelta
	ToolCallChunks []ArgFragmentDelta
}

// ToolCallDelta is a possibly partial request to invoke a named tool.
// Deltas without both ID and Name are transient assembly state and are
// dropped during classification.
type ToolCallDelta struct {
	ID   string
	Name string
	Args map[string]any
}

// ArgFragmentDelta is one raw fragment of a call's argument serialization.
type ArgFragmentDelta struct {
	Index int
	ID    string
	Args  string
}

// ToolChunk is the terminal result of a previously requested tool call.
type ToolChunk struct {
	ToolCallID string
	Content    any
}

// StateChunk is a complete snapshot of the conversation so far.
type StateChunk struct {
	Messages []models.Message
}
