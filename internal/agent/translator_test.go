package agent

import (
	"errors"
	"testing"

	"github.com/haasonsaas/atelier/pkg/models"
)

func TestTranslateTextDelta(t *testing.T) {
	tr := NewTranslator(nil)
	acc := NewArgAccumulator()

	recs := tr.Translate(TextDelta{Content: "Hi"}, acc)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	delta, ok := recs[0].(models.DeltaRecord)
	if !ok || delta.Content != "Hi" {
		t.Fatalf("got %#v", recs[0])
	}

	if recs := tr.Translate(TextDelta{}, acc); len(recs) != 0 {
		t.Fatalf("empty delta produced %#v", recs)
	}
}

func TestTranslateToolCallMergesAndReemits(t *testing.T) {
	tr := NewTranslator(nil)
	acc := NewArgAccumulator()

	recs := tr.Translate(ToolCallRequest{CallID: "c1", Name: "generate_image", Args: map[string]any{"prompt": "cat"}}, acc)
	call := recs[0].(models.ToolCallRecord)
	if call.ID != "c1" || call.Name != "generate_image" || call.Arguments["prompt"] != "cat" {
		t.Fatalf("first emission = %#v", call)
	}

	// A later request for the same id replaces, carrying the merged args.
	recs = tr.Translate(ToolCallRequest{CallID: "c1", Name: "generate_image", Args: map[string]any{"size": "1:1"}}, acc)
	call = recs[0].(models.ToolCallRecord)
	if call.Arguments["prompt"] != "cat" || call.Arguments["size"] != "1:1" {
		t.Fatalf("re-emission lost merged args: %#v", call.Arguments)
	}
}

func TestTranslateToolCallEmptyArgsStillEmits(t *testing.T) {
	tr := NewTranslator(nil)
	acc := NewArgAccumulator()
	recs := tr.Translate(ToolCallRequest{CallID: "c1", Name: "generate_image"}, acc)
	call := recs[0].(models.ToolCallRecord)
	if call.Arguments == nil || len(call.Arguments) != 0 {
		t.Fatalf("want empty arguments object, got %#v", call.Arguments)
	}
}

func TestTranslateArgFragment(t *testing.T) {
	tr := NewTranslator(nil)
	acc := NewArgAccumulator()

	recs := tr.Translate(ToolCallArgFragment{CallID: "c1", Index: 0, Fragment: `{"prompt"`}, acc)
	chunk := recs[0].(models.ToolCallChunkRecord)
	if chunk.ID != "c1" || chunk.Index != 0 || chunk.Args != `{"prompt"` {
		t.Fatalf("got %#v", chunk)
	}
	// Raw fragments never touch the accumulator.
	if acc.Len() != 0 {
		t.Fatalf("fragment leaked into accumulator")
	}

	if recs := tr.Translate(ToolCallArgFragment{CallID: "c1", Fragment: ""}, acc); len(recs) != 0 {
		t.Fatalf("empty fragment produced %#v", recs)
	}
}

func TestTranslateToolResultReleases(t *testing.T) {
	tr := NewTranslator(nil)
	acc := NewArgAccumulator()
	acc.Merge("c1", map[string]any{"prompt": "cat"})

	recs := tr.Translate(ToolResultUnit{CallID: "c1", Content: "ok"}, acc)
	res := recs[0].(models.ToolResultRecord)
	if res.ToolCallID != "c1" || res.Content != "ok" {
		t.Fatalf("got %#v", res)
	}
	if acc.Len() != 0 {
		t.Fatalf("accumulator entry survived result")
	}
}

func TestTranslateFullState(t *testing.T) {
	tr := NewTranslator(nil)
	recs := tr.Translate(FullStateUnit{Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}}}, NewArgAccumulator())
	snap := recs[0].(models.MessagesRecord)
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "hi" {
		t.Fatalf("got %#v", snap)
	}
}

func TestTranslateMalformed(t *testing.T) {
	tr := NewTranslator(nil)
	recs := tr.Translate(MalformedUnit{Err: errors.New("bad shape")}, NewArgAccumulator())
	errRec := recs[0].(models.ErrorRecord)
	if errRec.Detail != "bad shape" {
		t.Fatalf("got %#v", errRec)
	}
}
