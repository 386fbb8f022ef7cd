package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/haasonsaas/atelier/internal/agent"
	"github.com/haasonsaas/atelier/pkg/models"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements agent.Provider for Claude models.
//
// Anthropic streams tool input as input_json_delta events inside a
// tool_use content block, which maps directly onto raw argument
// fragments: each partial JSON delta is forwarded as it arrives and the
// completed call is emitted at content_block_stop.
type AnthropicProvider struct {
	client    anthropic.Client
	logger    *slog.Logger
	hasAPIKey bool
}

// NewAnthropicProvider creates a provider for the given API key. An empty
// base URL targets api.anthropic.com.
func NewAnthropicProvider(apiKey, baseURL string, logger *slog.Logger) *AnthropicProvider {
	if logger == nil {
		logger = slog.Default()
	}
	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client:    anthropic.NewClient(options...),
		logger:    logger.With("component", "provider", "provider", "anthropic"),
		hasAPIKey: apiKey != "",
	}
}

// Name returns the provider identifier used for routing and logging.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete streams a Claude response. The returned channel closes when
// the stream ends.
func (p *AnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.CompletionChunk, error) {
	if !p.hasAPIKey {
		return nil, errors.New("anthropic api key not configured")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  convertAnthropicMessages(req.Messages),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertAnthropicTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	chunks := make(chan agent.CompletionChunk)
	go p.processStream(ctx, stream, chunks)
	return chunks, nil
}

func (p *AnthropicProvider) processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- agent.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	var current *models.ToolCall
	var currentInput strings.Builder
	blockIndex := -1

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "content_block_start":
			blockIndex++
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				toolUse := block.AsToolUse()
				current = &models.ToolCall{ID: toolUse.ID, Name: toolUse.Name}
				currentInput.Reset()
				if !sendChunk(ctx, chunks, agent.CompletionChunk{Fragment: &agent.ToolCallFragment{
					Index: blockIndex,
					ID:    toolUse.ID,
					Name:  toolUse.Name,
				}}) {
					return
				}
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					if !sendChunk(ctx, chunks, agent.CompletionChunk{Text: delta.Text}) {
						return
					}
				}
			case "input_json_delta":
				if delta.PartialJSON != "" && current != nil {
					currentInput.WriteString(delta.PartialJSON)
					if !sendChunk(ctx, chunks, agent.CompletionChunk{Fragment: &agent.ToolCallFragment{
						Index: blockIndex,
						ID:    current.ID,
						Args:  delta.PartialJSON,
					}}) {
						return
					}
				}
			}

		case "content_block_stop":
			if current != nil {
				args := map[string]any{}
				if raw := currentInput.String(); raw != "" {
					if err := json.Unmarshal([]byte(raw), &args); err != nil {
						p.logger.Warn("unparseable tool input", "tool", current.Name, "error", err)
						args = map[string]any{}
					}
				}
				current.Args = args
				if !sendChunk(ctx, chunks, agent.CompletionChunk{ToolCall: current}) {
					return
				}
				current = nil
			}

		case "message_stop":
			sendChunk(ctx, chunks, agent.CompletionChunk{Done: true})
			return

		case "error":
			sendChunk(ctx, chunks, agent.CompletionChunk{Err: errors.New("anthropic stream error"), Done: true})
			return
		}
	}

	if err := stream.Err(); err != nil {
		sendChunk(ctx, chunks, agent.CompletionChunk{Err: err, Done: true})
	}
}

func convertAnthropicMessages(messages []models.Message) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		var content []anthropic.ContentBlockParamUnion
		switch msg.Role {
		case models.RoleAssistant:
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.NewToolUseBlock(tc.ID, tc.Args, tc.Name))
			}
			if len(content) > 0 {
				result = append(result, anthropic.NewAssistantMessage(content...))
			}
		case models.RoleTool:
			content = append(content, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			result = append(result, anthropic.NewUserMessage(content...))
		default:
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
				result = append(result, anthropic.NewUserMessage(content...))
			}
		}
	}
	return result
}

func convertAnthropicTools(tools []agent.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, def := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(def.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", def.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", def.Name)
		}
		param.OfTool.Description = anthropic.String(def.Description)
		result = append(result, param)
	}
	return result, nil
}
