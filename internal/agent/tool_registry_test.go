package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type strictTool struct{}

func (strictTool) Name() string        { return "resize" }
func (strictTool) Description() string { return "resize an image" }
func (strictTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"width": {"type": "integer", "minimum": 1}
		},
		"required": ["width"]
	}`)
}

func (strictTool) Execute(ctx context.Context, params json.RawMessage) (*ToolOutput, error) {
	return &ToolOutput{Content: "resized"}, nil
}

func TestRegistryExecutesRegisteredTool(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(strictTool{})

	out, err := registry.Execute(context.Background(), "resize", json.RawMessage(`{"width": 100}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.IsError || out.Content != "resized" {
		t.Fatalf("got %#v", out)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewToolRegistry()
	out, err := registry.Execute(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !out.IsError || !strings.Contains(out.Content, "unknown tool") {
		t.Fatalf("got %#v", out)
	}
}

func TestRegistryValidatesAgainstSchema(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(strictTool{})

	out, err := registry.Execute(context.Background(), "resize", json.RawMessage(`{"width": "wide"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !out.IsError || !strings.Contains(out.Content, "validation") {
		t.Fatalf("invalid params accepted: %#v", out)
	}

	out, err = registry.Execute(context.Background(), "resize", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !out.IsError {
		t.Fatalf("missing required param accepted: %#v", out)
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(strictTool{})
	registry.Register(&echoTool{})

	defs := registry.Definitions()
	if len(defs) != 2 {
		t.Fatalf("got %d definitions", len(defs))
	}
	if defs[0].Name != "generate_image" || defs[1].Name != "resize" {
		t.Fatalf("definitions not sorted: %v, %v", defs[0].Name, defs[1].Name)
	}
}

func TestRegistryRejectsOversizedParams(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(strictTool{})
	big := json.RawMessage(strings.Repeat("x", MaxToolParamsSize+1))
	out, err := registry.Execute(context.Background(), "resize", big)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !out.IsError {
		t.Fatalf("oversized params accepted")
	}
}
