package agent

import (
	"fmt"

	"github.com/haasonsaas/atelier/pkg/models"
)

// Classify reduces one inbound chunk of unknown shape to a flat, ordered
// sequence of Units. It is the only place in the pipeline that inspects
// upstream shapes; everything downstream works on the closed Unit set.
//
// A panic while classifying degrades to a single MalformedUnit for this
// chunk only, so one bad chunk never takes down the stream.
func Classify(chunk any) (units []Unit) {
	defer func() {
		if r := recover(); r != nil {
			units = []Unit{MalformedUnit{Err: fmt.Errorf("classify chunk: %v", r)}}
		}
	}()
	return classify(chunk)
}

func classify(chunk any) []Unit {
	switch c := chunk.(type) {
	case nil:
		return nil
	case ModeChunk:
		if c.Mode == ModeValues {
			return classifyState(c.Payload)
		}
		return classify(c.Payload)
	case []any:
		// A two-element slice tagged with a known mode name is the
		// (mode, payload) pair form. Any other string first element is
		// ordinary content, not a tag.
		if len(c) == 2 {
			if mode, ok := c[0].(string); ok && (mode == ModeValues || mode == ModeMessages) {
				return classify(ModeChunk{Mode: mode, Payload: c[1]})
			}
		}
		var units []Unit
		for _, item := range c {
			units = append(units, classify(item)...)
		}
		return units
	case AssistantChunk:
		return classifyAssistant(c)
	case ToolChunk:
		return []Unit{ToolResultUnit{CallID: c.ToolCallID, Content: c.Content}}
	case StateChunk:
		return []Unit{FullStateUnit{Messages: c.Messages}}
	case map[string]any:
		return classifyMap(c)
	case string:
		if c == "" {
			return nil
		}
		return []Unit{TextDelta{Content: c}}
	default:
		return []Unit{MalformedUnit{Err: fmt.Errorf("unrecognized chunk type %T", chunk)}}
	}
}

func classifyState(payload any) []Unit {
	switch p := payload.(type) {
	case StateChunk:
		return []Unit{FullStateUnit{Messages: p.Messages}}
	case map[string]any:
		raw, ok := p["messages"].([]any)
		if !ok {
			return []Unit{MalformedUnit{Err: fmt.Errorf("values chunk without messages")}}
		}
		messages := make([]models.Message, 0, len(raw))
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			messages = append(messages, messageFromMap(m))
		}
		return []Unit{FullStateUnit{Messages: messages}}
	default:
		return []Unit{MalformedUnit{Err: fmt.Errorf("unrecognized state payload %T", payload)}}
	}
}

// classifyAssistant flattens one assistant chunk. Text comes first, then
// tool call requests in source order, then raw argument fragments.
func classifyAssistant(c AssistantChunk) []Unit {
	var units []Unit
	if c.Content != "" {
		units = append(units, TextDelta{Content: c.Content})
	}
	for _, tc := range c.ToolCalls {
		if tc.ID == "" || tc.Name == "" {
			// Transient assembly state, not an error.
			continue
		}
		units = append(units, ToolCallRequest{CallID: tc.ID, Name: tc.Name, Args: tc.Args})
	}
	for _, frag := range c.ToolCallChunks {
		units = append(units, ToolCallArgFragment{CallID: frag.ID, Index: frag.Index, Fragment: frag.Args})
	}
	return units
}

// classifyMap handles loosely typed chunks that arrive as plain maps,
// e.g. after a JSON round trip. A result marker wins; otherwise the map
// is treated as an assistant chunk.
func classifyMap(m map[string]any) []Unit {
	if id, ok := stringField(m, "tool_call_id"); ok && id != "" {
		return []Unit{ToolResultUnit{CallID: id, Content: m["content"]}}
	}
	if _, ok := m["messages"]; ok {
		return classifyState(m)
	}
	chunk := AssistantChunk{}
	if content, ok := stringField(m, "content"); ok {
		chunk.Content = content
	}
	if rawCalls, ok := m["tool_calls"].([]any); ok {
		for _, item := range rawCalls {
			tc, ok := item.(map[string]any)
			if !ok {
				continue
			}
			delta := ToolCallDelta{}
			delta.ID, _ = stringField(tc, "id")
			delta.Name, _ = stringField(tc, "name")
			if args, ok := tc["args"].(map[string]any); ok {
				delta.Args = args
			}
			chunk.ToolCalls = append(chunk.ToolCalls, delta)
		}
	}
	if rawFrags, ok := m["tool_call_chunks"].([]any); ok {
		for _, item := range rawFrags {
			fc, ok := item.(map[string]any)
			if !ok {
				continue
			}
			frag := ArgFragmentDelta{}
			frag.ID, _ = stringField(fc, "id")
			frag.Args, _ = stringField(fc, "args")
			if idx, ok := fc["index"].(float64); ok {
				frag.Index = int(idx)
			}
			chunk.ToolCallChunks = append(chunk.ToolCallChunks, frag)
		}
	}
	if chunk.Content == "" && len(chunk.ToolCalls) == 0 && len(chunk.ToolCallChunks) == 0 {
		return []Unit{MalformedUnit{Err: fmt.Errorf("unrecognized chunk keys %v", mapKeys(m))}}
	}
	return classifyAssistant(chunk)
}

func messageFromMap(m map[string]any) models.Message {
	msg := models.Message{}
	if role, ok := stringField(m, "role"); ok {
		msg.Role = models.Role(role)
	}
	msg.Content, _ = stringField(m, "content")
	msg.ToolCallID, _ = stringField(m, "tool_call_id")
	if rawCalls, ok := m["tool_calls"].([]any); ok {
		for _, item := range rawCalls {
			tc, ok := item.(map[string]any)
			if !ok {
				continue
			}
			call := models.ToolCall{}
			call.ID, _ = stringField(tc, "id")
			call.Name, _ = stringField(tc, "name")
			if args, ok := tc["args"].(map[string]any); ok {
				call.Args = args
			}
			msg.ToolCalls = append(msg.ToolCalls, call)
		}
	}
	return msg
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
