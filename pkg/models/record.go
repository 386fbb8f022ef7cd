package models

// RecordType tags a wire record variant.
type RecordType string

const (
	RecordDelta         RecordType = "delta"
	RecordToolCall      RecordType = "tool_call"
	RecordToolCallChunk RecordType = "tool_call_chunk"
	RecordToolResult    RecordType = "tool_result"
	RecordMessages      RecordType = "messages"
	RecordError         RecordType = "error"
)

// Record is one unit of the outbound event stream. Each variant marshals
// to a flat JSON object carrying its own "type" tag. The stream terminal
// marker is not a Record; it is the transport-level [DONE] sentinel frame
// written by the sink.
type Record interface {
	Kind() RecordType
}

// DeltaRecord carries one increment of assistant text.
type DeltaRecord struct {
	Type    RecordType `json:"type"`
	Content string     `json:"content"`
}

// ToolCallRecord announces a tool invocation with the arguments merged so
// far. A later record with the same ID replaces this one; consumers must
// not append.
type ToolCallRecord struct {
	Type      RecordType     `json:"type"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCallChunkRecord carries one raw fragment of a tool call's argument
// serialization, for low-latency rendering only.
type ToolCallChunkRecord struct {
	Type  RecordType `json:"type"`
	Index int        `json:"index"`
	ID    string     `json:"id"`
	Args  string     `json:"args"`
}

// ToolResultRecord carries the terminal result of a tool invocation.
type ToolResultRecord struct {
	Type       RecordType `json:"type"`
	ToolCallID string     `json:"tool_call_id"`
	Content    any        `json:"content"`
}

// MessagesRecord is a consistency checkpoint: the full conversation so
// far. Its content supersedes everything streamed incrementally before it.
type MessagesRecord struct {
	Type     RecordType `json:"type"`
	Messages []Message  `json:"messages"`
}

// ErrorRecord reports a failure to the consumer.
type ErrorRecord struct {
	Type   RecordType `json:"type"`
	Error  string     `json:"error"`
	Detail string     `json:"detail,omitempty"`
}

func (DeltaRecord) Kind() RecordType         { return RecordDelta }
func (ToolCallRecord) Kind() RecordType      { return RecordToolCall }
func (ToolCallChunkRecord) Kind() RecordType { return RecordToolCallChunk }
func (ToolResultRecord) Kind() RecordType    { return RecordToolResult }
func (MessagesRecord) Kind() RecordType      { return RecordMessages }
func (ErrorRecord) Kind() RecordType         { return RecordError }

// NewDelta builds a delta record.
func NewDelta(content string) DeltaRecord {
	return DeltaRecord{Type: RecordDelta, Content: content}
}

// NewToolCall builds a tool_call record. Arguments is never nil so the
// wire form always carries an object, "{}" included.
func NewToolCall(id, name string, args map[string]any) ToolCallRecord {
	if args == nil {
		args = map[string]any{}
	}
	return ToolCallRecord{Type: RecordToolCall, ID: id, Name: name, Arguments: args}
}

// NewToolCallChunk builds a tool_call_chunk record.
func NewToolCallChunk(index int, id, args string) ToolCallChunkRecord {
	return ToolCallChunkRecord{Type: RecordToolCallChunk, Index: index, ID: id, Args: args}
}

// NewToolResult builds a tool_result record.
func NewToolResult(toolCallID string, content any) ToolResultRecord {
	return ToolResultRecord{Type: RecordToolResult, ToolCallID: toolCallID, Content: content}
}

// NewMessages builds a messages snapshot record.
func NewMessages(messages []Message) MessagesRecord {
	if messages == nil {
		messages = []Message{}
	}
	return MessagesRecord{Type: RecordMessages, Messages: messages}
}

// NewError builds an error record.
func NewError(msg, detail string) ErrorRecord {
	return ErrorRecord{Type: RecordError, Error: msg, Detail: detail}
}
