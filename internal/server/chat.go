package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/haasonsaas/atelier/internal/agent"
	"github.com/haasonsaas/atelier/pkg/models"
)

// chatRequest is the body of POST /api/chat. Either a single message or
// a full prior transcript can be supplied; both together append the
// message to the transcript.
type chatRequest struct {
	Message   string           `json:"message"`
	Messages  []models.Message `json:"messages"`
	SessionID string           `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversation := req.Messages
	if msg := strings.TrimSpace(req.Message); msg != "" {
		conversation = append(conversation, models.Message{
			Role:    models.RoleUser,
			Content: msg,
		})
	}
	if len(conversation) == 0 {
		writeJSONError(w, http.StatusBadRequest, "message or messages required")
		return
	}

	sink, err := newSSESink(w, s.metrics)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.logger
	if req.SessionID != "" {
		logger = logger.With("session_id", req.SessionID)
	}
	logger.Info("chat stream starting", "messages", len(conversation))

	s.metrics.StreamStarted()
	defer s.metrics.StreamFinished()

	source := s.runner.Events(r.Context(), conversation)
	if err := s.driver.Run(r.Context(), source, sink); err != nil {
		// The response may already be partially written; the driver has
		// emitted what it could. Log and move on.
		logger.Warn("chat stream ended with error", "error", err)
		return
	}
	logger.Info("chat stream finished")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// StreamRunner produces the source events for one conversation turn.
// *agent.Runner is the production implementation; tests substitute
// scripted sources.
type StreamRunner interface {
	Events(ctx context.Context, conversation []models.Message) <-chan agent.SourceEvent
}
