package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haasonsaas/atelier/pkg/models"
)

// DefaultStepBudget bounds the number of model/tool round-trips per turn.
// A single multi-image conversation turn can legitimately need many tool
// round-trips, so the default is generous.
const DefaultStepBudget = 200

// ErrStepBudgetExceeded is reported when a turn exceeds its step budget.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

// RunnerConfig configures the agentic event source.
type RunnerConfig struct {
	// Model is the provider model identifier.
	Model string

	// System is the system prompt for the run.
	System string

	// MaxTokens caps each model response. 0 uses the provider default.
	MaxTokens int

	// StepBudget limits model/tool round-trips per turn.
	// Default: DefaultStepBudget.
	StepBudget int
}

// Runner is the agent's event source: it drives the model/tool loop for
// one conversation turn and emits raw chunks for the stream driver to
// classify. A Runner is stateless across turns; each Events call is an
// independent run.
type Runner struct {
	provider Provider
	tools    *ToolRegistry
	config   RunnerConfig
	logger   *slog.Logger
	metrics  *Metrics
}

// NewRunner creates a runner over the given provider and tool registry.
func NewRunner(provider Provider, tools *ToolRegistry, config RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.StepBudget <= 0 {
		config.StepBudget = DefaultStepBudget
	}
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &Runner{
		provider: provider,
		tools:    tools,
		config:   config,
		logger:   logger.With("component", "runner"),
		metrics:  NewMetrics(),
	}
}

// Events starts one turn over the given conversation and returns its lazy
// event sequence. The channel closes when the turn ends; a SourceEvent
// with Err set is the last event of a failed turn. The run stops pulling
// and executing as soon as ctx is canceled.
func (r *Runner) Events(ctx context.Context, conversation []models.Message) <-chan SourceEvent {
	out := make(chan SourceEvent)
	go func() {
		defer close(out)
		r.run(ctx, conversation, out)
	}()
	return out
}

func (r *Runner) run(ctx context.Context, conversation []models.Message, out chan<- SourceEvent) {
	transcript := append([]models.Message{}, conversation...)

	for step := 0; ; step++ {
		if step >= r.config.StepBudget {
			r.send(ctx, out, SourceEvent{Err: fmt.Errorf("%w after %d steps", ErrStepBudgetExceeded, step)})
			return
		}

		req := &CompletionRequest{
			Model:     r.config.Model,
			System:    r.config.System,
			Messages:  transcript,
			Tools:     r.tools.Definitions(),
			MaxTokens: r.config.MaxTokens,
		}
		chunks, err := r.provider.Complete(ctx, req)
		if err != nil {
			r.send(ctx, out, SourceEvent{Err: fmt.Errorf("completion failed: %w", err)})
			return
		}

		var text strings.Builder
		var completed []models.ToolCall
		partial := newPartialCalls()

		for chunk := range chunks {
			if chunk.Err != nil {
				r.send(ctx, out, SourceEvent{Err: chunk.Err})
				return
			}
			if chunk.Text != "" {
				text.WriteString(chunk.Text)
				if !r.send(ctx, out, SourceEvent{Chunk: ModeChunk{
					Mode:    ModeMessages,
					Payload: AssistantChunk{Content: chunk.Text},
				}}) {
					return
				}
			}
			if chunk.Fragment != nil {
				assistant := partial.absorb(*chunk.Fragment)
				if assistant != nil {
					if !r.send(ctx, out, SourceEvent{Chunk: ModeChunk{Mode: ModeMessages, Payload: *assistant}}) {
						return
					}
				}
			}
			if chunk.ToolCall != nil {
				completed = append(completed, *chunk.ToolCall)
			}
			if chunk.Done {
				// End of this completion; anything after the marker is
				// provider noise.
				break
			}
		}

		assistant := models.Message{Role: models.RoleAssistant, Content: text.String(), ToolCalls: completed}
		transcript = append(transcript, assistant)

		if len(completed) == 0 {
			r.send(ctx, out, SourceEvent{Chunk: ModeChunk{Mode: ModeValues, Payload: StateChunk{Messages: transcript}}})
			return
		}

		for _, call := range completed {
			if ctx.Err() != nil {
				return
			}
			result := r.executeCall(ctx, call)
			transcript = append(transcript, models.Message{
				Role:       models.RoleTool,
				Content:    fmt.Sprint(result.Content),
				ToolCallID: call.ID,
			})
			if !r.send(ctx, out, SourceEvent{Chunk: result}) {
				return
			}
		}

		if !r.send(ctx, out, SourceEvent{Chunk: ModeChunk{Mode: ModeValues, Payload: StateChunk{Messages: transcript}}}) {
			return
		}
	}
}

func (r *Runner) executeCall(ctx context.Context, call models.ToolCall) ToolChunk {
	r.metrics.ToolCallExecuted()
	params, err := json.Marshal(call.Args)
	if err != nil {
		return ToolChunk{ToolCallID: call.ID, Content: fmt.Sprintf("invalid tool arguments: %v", err)}
	}
	r.logger.Info("executing tool", "name", call.Name, "id", call.ID)
	output, err := r.tools.Execute(ctx, call.Name, params)
	if err != nil {
		return ToolChunk{ToolCallID: call.ID, Content: fmt.Sprintf("tool execution failed: %v", err)}
	}
	if output.IsError {
		r.logger.Warn("tool returned error", "name", call.Name, "id", call.ID, "error", output.Content)
	}
	return ToolChunk{ToolCallID: call.ID, Content: output.Content}
}

func (r *Runner) send(ctx context.Context, out chan<- SourceEvent, ev SourceEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// partialCalls tracks per-index tool call assembly during one completion
// stream so partially parsed arguments can be surfaced as they firm up.
type partialCalls struct {
	byIndex map[int]*partialCall
}

type partialCall struct {
	id   string
	name string
	raw  strings.Builder
}

func newPartialCalls() *partialCalls {
	return &partialCalls{byIndex: make(map[int]*partialCall)}
}

// absorb folds one raw fragment in and returns the assistant chunk to
// forward: the raw fragment always, plus a parsed tool call delta
// whenever the accumulated argument JSON parses cleanly.
func (p *partialCalls) absorb(frag ToolCallFragment) *AssistantChunk {
	call := p.byIndex[frag.Index]
	if call == nil {
		call = &partialCall{}
		p.byIndex[frag.Index] = call
	}
	if frag.ID != "" {
		call.id = frag.ID
	}
	if frag.Name != "" {
		call.name = frag.Name
	}
	if frag.Args != "" {
		call.raw.WriteString(frag.Args)
	}

	chunk := AssistantChunk{}
	if frag.Args != "" {
		chunk.ToolCallChunks = append(chunk.ToolCallChunks, ArgFragmentDelta{
			Index: frag.Index,
			ID:    call.id,
			Args:  frag.Args,
		})
	}
	if call.id != "" && call.name != "" {
		var args map[string]any
		if raw := call.raw.String(); raw == "" {
			args = map[string]any{}
		} else if err := json.Unmarshal([]byte(raw), &args); err != nil {
			args = nil
		}
		if args != nil {
			chunk.ToolCalls = append(chunk.ToolCalls, ToolCallDelta{ID: call.id, Name: call.name, Args: args})
		}
	}
	if len(chunk.ToolCalls) == 0 && len(chunk.ToolCallChunks) == 0 {
		return nil
	}
	return &chunk
}
