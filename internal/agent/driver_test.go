package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/atelier/pkg/models"
)

type recordingSink struct {
	records   []models.Record
	doneCount int
	failAfter int // fail Send once this many records were accepted; <0 never
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failAfter: -1}
}

func (s *recordingSink) Send(rec models.Record) error {
	if s.failAfter >= 0 && len(s.records) >= s.failAfter {
		return errors.New("client gone")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) Done() error {
	s.doneCount++
	return nil
}

func sourceOf(events ...SourceEvent) <-chan SourceEvent {
	ch := make(chan SourceEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestDriverScenarioOrdering(t *testing.T) {
	sink := newRecordingSink()
	source := sourceOf(
		SourceEvent{Chunk: AssistantChunk{Content: "Hi"}},
		SourceEvent{Chunk: AssistantChunk{ToolCalls: []ToolCallDelta{{ID: "c1", Name: "gen"}}}},
		SourceEvent{Chunk: AssistantChunk{ToolCallChunks: []ArgFragmentDelta{{Index: 0, ID: "c1", Args: `{"prompt"`}}}},
		SourceEvent{Chunk: AssistantChunk{ToolCallChunks: []ArgFragmentDelta{{Index: 0, ID: "c1", Args: `:"cat"}`}}}},
		SourceEvent{Chunk: ToolChunk{ToolCallID: "c1", Content: "ok"}},
	)

	if err := NewDriver(nil).Run(context.Background(), source, sink); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantKinds := []models.RecordType{
		models.RecordDelta,
		models.RecordToolCall,
		models.RecordToolCallChunk,
		models.RecordToolCallChunk,
		models.RecordToolResult,
	}
	if len(sink.records) != len(wantKinds) {
		t.Fatalf("got %d records %v, want %d", len(sink.records), sink.records, len(wantKinds))
	}
	for i, want := range wantKinds {
		if got := sink.records[i].Kind(); got != want {
			t.Errorf("record %d kind = %q, want %q", i, got, want)
		}
	}
	call := sink.records[1].(models.ToolCallRecord)
	if call.ID != "c1" || call.Name != "gen" || len(call.Arguments) != 0 {
		t.Errorf("tool_call = %#v", call)
	}
	if sink.doneCount != 1 {
		t.Errorf("done emitted %d times, want exactly 1", sink.doneCount)
	}
}

func TestDriverEmitsDoneOnEmptySource(t *testing.T) {
	sink := newRecordingSink()
	if err := NewDriver(nil).Run(context.Background(), sourceOf(), sink); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.records) != 0 || sink.doneCount != 1 {
		t.Fatalf("records=%d done=%d", len(sink.records), sink.doneCount)
	}
}

func TestDriverSourceErrorEmitsErrorThenDone(t *testing.T) {
	sink := newRecordingSink()
	source := sourceOf(
		SourceEvent{Chunk: AssistantChunk{Content: "partial"}},
		SourceEvent{Err: errors.New("step budget exceeded after 200 steps")},
	)
	if err := NewDriver(nil).Run(context.Background(), source, sink); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.records) != 2 {
		t.Fatalf("got %d records, want delta+error", len(sink.records))
	}
	errRec, ok := sink.records[1].(models.ErrorRecord)
	if !ok || errRec.Detail == "" {
		t.Fatalf("last record = %#v, want error with detail", sink.records[1])
	}
	if sink.doneCount != 1 {
		t.Fatalf("done emitted %d times, want exactly 1", sink.doneCount)
	}
}

func TestDriverMalformedChunkDoesNotStopStream(t *testing.T) {
	sink := newRecordingSink()
	source := sourceOf(
		SourceEvent{Chunk: 42},
		SourceEvent{Chunk: AssistantChunk{Content: "still here"}},
	)
	if err := NewDriver(nil).Run(context.Background(), source, sink); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.records) != 2 {
		t.Fatalf("got %d records, want error+delta", len(sink.records))
	}
	if sink.records[0].Kind() != models.RecordError {
		t.Errorf("record 0 = %#v", sink.records[0])
	}
	if delta, ok := sink.records[1].(models.DeltaRecord); !ok || delta.Content != "still here" {
		t.Errorf("record 1 = %#v", sink.records[1])
	}
	if sink.doneCount != 1 {
		t.Errorf("done emitted %d times", sink.doneCount)
	}
}

func TestDriverCancellationWritesNothingFurther(t *testing.T) {
	sink := newRecordingSink()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := make(chan SourceEvent)
	defer close(source)
	err := NewDriver(nil).Run(ctx, source, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sink.records) != 0 || sink.doneCount != 0 {
		t.Fatalf("writes after disconnect: records=%d done=%d", len(sink.records), sink.doneCount)
	}
}

func TestDriverTransportFailureAbandonsSilently(t *testing.T) {
	sink := newRecordingSink()
	sink.failAfter = 1
	source := sourceOf(
		SourceEvent{Chunk: AssistantChunk{Content: "a"}},
		SourceEvent{Chunk: AssistantChunk{Content: "b"}},
	)
	if err := NewDriver(nil).Run(context.Background(), source, sink); err == nil {
		t.Fatalf("expected transport error")
	}
	if sink.doneCount != 0 {
		t.Fatalf("done written to a dead transport")
	}
}

func TestDriverSnapshotSupersedesIncrementals(t *testing.T) {
	sink := newRecordingSink()
	final := []models.Message{
		{Role: models.RoleUser, Content: "draw a cat"},
		{Role: models.RoleAssistant, Content: "Here you go", ToolCalls: []models.ToolCall{{ID: "c1", Name: "gen", Args: map[string]any{"prompt": "cat"}}}},
		{Role: models.RoleTool, Content: "ok", ToolCallID: "c1"},
	}
	source := sourceOf(
		SourceEvent{Chunk: AssistantChunk{Content: "Here "}},
		SourceEvent{Chunk: AssistantChunk{Content: "you go"}},
		SourceEvent{Chunk: ModeChunk{Mode: ModeValues, Payload: StateChunk{Messages: final}}},
	)
	if err := NewDriver(nil).Run(context.Background(), source, sink); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Reconstructing from messages records alone yields the final state.
	var lastSnapshot []models.Message
	for _, rec := range sink.records {
		if snap, ok := rec.(models.MessagesRecord); ok {
			lastSnapshot = snap.Messages
		}
	}
	if len(lastSnapshot) != len(final) {
		t.Fatalf("snapshot has %d messages, want %d", len(lastSnapshot), len(final))
	}
	for i := range final {
		if lastSnapshot[i].Role != final[i].Role || lastSnapshot[i].Content != final[i].Content {
			t.Errorf("snapshot message %d = %#v, want %#v", i, lastSnapshot[i], final[i])
		}
	}
}
