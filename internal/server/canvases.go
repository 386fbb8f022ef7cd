package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/haasonsaas/atelier/internal/history"
)

const maxCanvasSize = 32 << 20 // canvases embed images as data URIs

func (s *Server) handleListCanvases(w http.ResponseWriter, r *http.Request) {
	canvases, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("list canvases failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load canvases")
		return
	}
	if canvases == nil {
		canvases = []json.RawMessage{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(canvases)
}

func (s *Server) handleSaveCanvas(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCanvasSize))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if !json.Valid(body) {
		writeJSONError(w, http.StatusBadRequest, "canvas must be valid JSON")
		return
	}

	saved, err := s.store.Save(r.Context(), body)
	if err != nil {
		if errors.Is(err, history.ErrInvalidCanvas) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("save canvas failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save canvas")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(saved)
}

func (s *Server) handleDeleteCanvas(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "canvas id required")
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete canvas failed", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete canvas")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}
