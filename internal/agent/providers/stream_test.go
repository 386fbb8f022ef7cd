package providers

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/atelier/internal/agent"
)

func TestSendChunkDelivers(t *testing.T) {
	ch := make(chan agent.CompletionChunk, 1)
	if !sendChunk(context.Background(), ch, agent.CompletionChunk{Text: "hi"}) {
		t.Fatal("sendChunk = false with a ready receiver")
	}
	if got := <-ch; got.Text != "hi" {
		t.Fatalf("received %+v", got)
	}
}

func TestSendChunkAbandonsWhenConsumerGone(t *testing.T) {
	// The consumer disconnected: nobody reads the channel and the
	// context is already canceled. The send must return promptly
	// instead of blocking forever.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan agent.CompletionChunk)
	done := make(chan bool, 1)
	go func() {
		done <- sendChunk(ctx, ch, agent.CompletionChunk{Text: "orphaned"})
	}()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("sendChunk = true with no receiver")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sendChunk blocked after context cancellation")
	}
}

func TestSendChunkUnblocksOnLateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan agent.CompletionChunk)
	done := make(chan bool, 1)
	go func() {
		done <- sendChunk(ctx, ch, agent.CompletionChunk{Text: "mid-stream"})
	}()

	// No receiver ever arrives; cancellation must release the sender.
	cancel()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("sendChunk = true after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sendChunk did not observe cancellation")
	}
}
