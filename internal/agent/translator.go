package agent

import (
	"log/slog"
	"strings"

	"github.com/haasonsaas/atelier/pkg/models"
)

// Translator maps normalized Units to wire records. It holds no state the
// wire format depends on; the only mutable state is a text buffer used to
// coalesce assistant prose for readable logs, which never delays or alters
// the delta records themselves.
type Translator struct {
	logger  *slog.Logger
	metrics *Metrics
	textBuf strings.Builder
}

// NewTranslator creates a translator logging through the given logger.
func NewTranslator(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		logger:  logger.With("component", "translator"),
		metrics: NewMetrics(),
	}
}

// Translate converts one Unit into zero or more wire records, consulting
// the accumulator for tool call argument state.
func (t *Translator) Translate(u Unit, acc *ArgAccumulator) []models.Record {
	switch u := u.(type) {
	case TextDelta:
		if u.Content == "" {
			return nil
		}
		t.bufferText(u.Content)
		return []models.Record{models.NewDelta(u.Content)}

	case ToolCallRequest:
		if u.CallID == "" || u.Name == "" {
			return nil
		}
		merged := acc.Merge(u.CallID, u.Args)
		t.logger.Info("tool call", "name", u.Name, "id", u.CallID, "args", len(merged))
		return []models.Record{models.NewToolCall(u.CallID, u.Name, merged)}

	case ToolCallArgFragment:
		if u.Fragment == "" {
			return nil
		}
		return []models.Record{models.NewToolCallChunk(u.Index, u.CallID, u.Fragment)}

	case ToolResultUnit:
		acc.Release(u.CallID)
		t.logger.Info("tool result", "id", u.CallID)
		return []models.Record{models.NewToolResult(u.CallID, u.Content)}

	case FullStateUnit:
		return []models.Record{models.NewMessages(u.Messages)}

	case MalformedUnit:
		detail := ""
		if u.Err != nil {
			detail = u.Err.Error()
		}
		t.logger.Warn("malformed chunk", "error", detail)
		t.metrics.ErrorEmitted()
		return []models.Record{models.NewError("failed to process chunk", detail)}

	default:
		return nil
	}
}

// bufferText accumulates prose and logs it in readable runs instead of
// one line per token.
func (t *Translator) bufferText(content string) {
	t.textBuf.WriteString(content)
	buffered := t.textBuf.String()
	if strings.Contains(buffered, "\n") || (len(buffered) > 80 && strings.ContainsAny(buffered, ".!?")) {
		line := strings.TrimSpace(strings.ReplaceAll(buffered, "\n", " "))
		if line != "" {
			t.logger.Info("assistant", "text", line)
		}
		t.textBuf.Reset()
	}
}

// Flush logs any remaining buffered prose. Call once at stream end.
func (t *Translator) Flush() {
	line := strings.TrimSpace(strings.ReplaceAll(t.textBuf.String(), "\n", " "))
	if line != "" {
		t.logger.Info("assistant", "text", line)
	}
	t.textBuf.Reset()
}
