package agent

import "github.com/haasonsaas/atelier/pkg/models"

// Unit is one normalized message unit produced by the classifier. The set
// of variants is closed; anything the classifier cannot recognize becomes
// a MalformedUnit rather than an error.
type Unit interface {
	isUnit()
}

// TextDelta is an increment of assistant text.
type TextDelta struct {
	Content string
}

// ToolCallRequest is a request to invoke a named tool with the arguments
// known so far. CallID and Name are always non-empty; the classifier
// drops entries missing either.
type ToolCallRequest struct {
	CallID string
	Name   string
	Args   map[string]any
}

// ToolCallArgFragment is a raw partial serialization of arguments for an
// in-flight call. Fragment order is not guaranteed upstream.
type ToolCallArgFragment struct {
	CallID   string
	Index    int
	Fragment string
}

// ToolResultUnit is the terminal result of a tool call.
type ToolResultUnit struct {
	CallID  string
	Content any
}

// FullStateUnit is a complete conversation snapshot.
type FullStateUnit struct {
	Messages []models.Message
}

// MalformedUnit records a chunk the classifier could not make sense of.
// It degrades to a one-off error record; the stream continues.
type MalformedUnit struct {
	Err error
}

func (TextDelta) isUnit()           {}
func (ToolCallRequest) isUnit()     {}
func (ToolCallArgFragment) isUnit() {}
func (ToolResultUnit) isUnit()      {}
func (FullStateUnit) isUnit()       {}
func (MalformedUnit) isUnit()       {}
