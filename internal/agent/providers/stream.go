package providers

import (
	"context"

	"github.com/haasonsaas/atelier/internal/agent"
)

// sendChunk delivers c unless ctx ends first, and reports whether the
// consumer is still listening. Stream goroutines must stop emitting as
// soon as it returns false; the channels are unbuffered and a plain
// send after the consumer has gone away would block forever.
func sendChunk(ctx context.Context, out chan<- agent.CompletionChunk, c agent.CompletionChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
