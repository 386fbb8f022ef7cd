package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/atelier/internal/agent"
	"github.com/haasonsaas/atelier/pkg/models"
)

// OpenAIProvider implements agent.Provider against any OpenAI-compatible
// chat completion endpoint (OpenAI itself, SiliconFlow, or another
// gateway exposing the same API).
//
// OpenAI streams tool calls incrementally: the first chunk for a call
// carries its id and function name, subsequent chunks carry argument JSON
// fragments, and a "tool_calls" finish reason signals completion. The
// provider surfaces every raw fragment as it arrives and emits the
// completed call once its arguments are fully assembled.
//
// Safe for concurrent use; each Complete call owns an independent stream.
type OpenAIProvider struct {
	client     *openai.Client
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIProvider creates a provider for the given API key and base
// URL. An empty base URL targets api.openai.com.
func NewOpenAIProvider(apiKey, baseURL string, logger *slog.Logger) *OpenAIProvider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &OpenAIProvider{
		logger:     logger.With("component", "provider", "provider", "openai"),
		maxRetries: 3,
		retryDelay: time.Second,
	}
	if apiKey == "" {
		return p
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	p.client = openai.NewClientWithConfig(cfg)
	return p
}

// Name returns the provider identifier used for routing and logging.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete streams a chat completion. The returned channel closes when
// the stream ends.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan agent.CompletionChunk, error) {
	if p.client == nil {
		return nil, errors.New("openai api key not configured")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: p.convertMessages(req.Messages, req.System),
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
		// One tool round-trip at a time keeps image results in causal
		// order for the client.
		chatReq.ParallelToolCalls = false
	}

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		stream, lastErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryableError(lastErr) {
			return nil, fmt.Errorf("completion request failed: %w", lastErr)
		}
		p.logger.Warn("retrying completion", "attempt", attempt+1, "error", lastErr)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}

	chunks := make(chan agent.CompletionChunk)
	go p.processStream(ctx, stream, chunks)
	return chunks, nil
}

// processStream converts the OpenAI stream into CompletionChunks,
// accumulating tool call fragments by index until completion.
func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- agent.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	type pending struct {
		id   string
		name string
		args strings.Builder
	}
	toolCalls := make(map[int]*pending)

	flush := func() bool {
		for _, tc := range toolCalls {
			if tc.id == "" || tc.name == "" {
				continue
			}
			args := map[string]any{}
			if raw := tc.args.String(); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					p.logger.Warn("unparseable tool arguments", "tool", tc.name, "error", err)
					args = map[string]any{}
				}
			}
			if !sendChunk(ctx, chunks, agent.CompletionChunk{ToolCall: &models.ToolCall{ID: tc.id, Name: tc.name, Args: args}}) {
				return false
			}
		}
		toolCalls = make(map[int]*pending)
		return true
	}

	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if flush() {
					sendChunk(ctx, chunks, agent.CompletionChunk{Done: true})
				}
				return
			}
			sendChunk(ctx, chunks, agent.CompletionChunk{Err: err, Done: true})
			return
		}
		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta
		if delta.Content != "" {
			if !sendChunk(ctx, chunks, agent.CompletionChunk{Text: delta.Content}) {
				return
			}
		}

		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &pending{}
			}
			if tc.ID != "" {
				toolCalls[index].id = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[index].args.WriteString(tc.Function.Arguments)
			}
			if !sendChunk(ctx, chunks, agent.CompletionChunk{Fragment: &agent.ToolCallFragment{
				Index: index,
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Args:  tc.Function.Arguments,
			}}) {
				return
			}
		}

		if response.Choices[0].FinishReason == openai.FinishReasonToolCalls {
			if !flush() {
				return
			}
		}
	}
}

func (p *OpenAIProvider) convertMessages(messages []models.Message, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		switch msg.Role {
		case models.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					args, err := json.Marshal(tc.Args)
					if err != nil {
						args = []byte("{}")
					}
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: string(args),
						},
					}
				}
			}
		case models.RoleTool:
			oaiMsg.Role = openai.ChatMessageRoleTool
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []agent.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, def := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(def.Schema),
			},
		})
	}
	return result
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
